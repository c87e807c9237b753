package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Checker reports the health of a single dependency
type Checker interface {
	HealthCheck(ctx context.Context) error
	IsCritical() bool
	Name() string
}

// Manager runs the registered checkers
type Manager struct {
	checkers []Checker
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates a new health manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		logger:   logger,
	}
}

// AddChecker adds a health checker to the manager
func (h *Manager) AddChecker(checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// StartupHealthCheck performs critical health checks that must pass for startup
func (h *Manager) StartupHealthCheck(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var criticalFailures []error

	for _, checker := range h.checkers {
		err := checker.HealthCheck(ctx)
		if err == nil {
			h.logger.Info("Service health check passed",
				zap.String("service", checker.Name()),
				zap.Bool("critical", checker.IsCritical()))
			continue
		}

		if checker.IsCritical() {
			criticalFailures = append(criticalFailures, fmt.Errorf("%s: %w", checker.Name(), err))
			h.logger.Error("Critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		} else {
			h.logger.Warn("Non-critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		}
	}

	if len(criticalFailures) > 0 {
		return fmt.Errorf("critical services failed health check: %v", criticalFailures)
	}

	h.logger.Info("All critical services healthy", zap.Int("total_checks", len(h.checkers)))
	return nil
}

// RuntimeHealthCheck performs health checks during runtime
func (h *Manager) RuntimeHealthCheck(ctx context.Context) map[string]error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make(map[string]error, len(h.checkers))
	for _, checker := range h.checkers {
		results[checker.Name()] = checker.HealthCheck(ctx)
	}
	return results
}

// Handler serves GET /health. Any failing critical checker makes the service unhealthy.
func (h *Manager) Handler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results := h.RuntimeHealthCheck(ctx)

	services := gin.H{}
	var failure error
	for _, checker := range h.snapshot() {
		err := results[checker.Name()]
		if err == nil {
			services[checker.Name()] = "healthy"
			continue
		}
		services[checker.Name()] = "unhealthy"
		if checker.IsCritical() && failure == nil {
			failure = fmt.Errorf("%s: %w", checker.Name(), err)
		}
	}

	if failure != nil {
		h.logger.Warn("Health check failed", zap.Error(failure))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"error":     failure.Error(),
			"services":  services,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}

func (h *Manager) snapshot() []Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Checker(nil), h.checkers...)
}

// DatabaseHealthChecker checks database connectivity
type DatabaseHealthChecker struct {
	db *bun.DB
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(db *bun.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

func (d *DatabaseHealthChecker) HealthCheck(ctx context.Context) error {
	if d.db == nil {
		return fmt.Errorf("database is nil")
	}
	return d.db.PingContext(ctx)
}

func (d *DatabaseHealthChecker) IsCritical() bool {
	return true
}

func (d *DatabaseHealthChecker) Name() string {
	return "database"
}

// ConfigHealthChecker checks configuration validity
type ConfigHealthChecker struct {
	validate func() error
}

// NewConfigHealthChecker creates a config health checker around a validation func
func NewConfigHealthChecker(validate func() error) *ConfigHealthChecker {
	return &ConfigHealthChecker{validate: validate}
}

func (c *ConfigHealthChecker) HealthCheck(ctx context.Context) error {
	if c.validate == nil {
		return fmt.Errorf("configuration is nil")
	}
	return c.validate()
}

func (c *ConfigHealthChecker) IsCritical() bool {
	return true
}

func (c *ConfigHealthChecker) Name() string {
	return "configuration"
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/userdir/userdir/internal/config"
	"github.com/userdir/userdir/internal/health"
	"github.com/userdir/userdir/internal/users"
)

const requestIDHeader = "X-Request-ID"

// AppState holds all application services
type AppState struct {
	DB            *bun.DB
	UserService   users.UserManager
	HealthManager *health.Manager
	Logger        *zap.Logger
	Config        *config.Config
}

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger()
	defer logger.Sync() //nolint:errcheck
	logger.Info("Configuration loaded",
		zap.String("store", config.Users().Store),
		zap.Int("min_adult_age", config.Users().MinAdultAge))

	ctx := context.Background()

	as, err := newAppState(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	if err := as.HealthManager.StartupHealthCheck(ctx); err != nil {
		logger.Fatal("Startup health check failed", zap.Error(err))
	}

	router := setupRouter(as)

	addr := config.Http().Addr()
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	done := setupSignalHandler(as, server, logger)

	logger.Info("Starting userdir server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates the store selected by configuration and the services on top of it
func newAppState(ctx context.Context, logger *zap.Logger) (*AppState, error) {
	healthManager := health.NewManager(logger)
	healthManager.AddChecker(health.NewConfigHealthChecker(config.Get().Validate))

	var (
		db    *bun.DB
		store users.UserStore
	)

	switch config.Users().Store {
	case config.StoreMemory:
		logger.Info("Using in-memory user store")
		store = users.NewInMemoryStore()
	default:
		pgConfig := config.Postgres()
		logger.Info("Database configuration",
			zap.String("host", pgConfig.Host),
			zap.Int("port", pgConfig.Port),
			zap.String("database", pgConfig.Database),
			zap.String("user", pgConfig.User))

		var err error
		db, err = users.OpenDB(ctx, pgConfig.DSN(), pgConfig.MaxOpenConnections)
		if err != nil {
			return nil, err
		}

		if err := users.Migrate(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}

		store = users.NewPostgresStore(db)
		healthManager.AddChecker(health.NewDatabaseHealthChecker(db))
	}

	validator := users.NewValidator(config.Users().MinAdultAge)

	return &AppState{
		DB:            db,
		UserService:   users.NewService(store, validator, logger),
		HealthManager: healthManager,
		Logger:        logger,
		Config:        config.Get(),
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// RequestLoggingMiddleware tags each request with an id and logs its outcome
func RequestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(users.RequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		// Skip logging for health probes
		if c.FullPath() == "/health" {
			return
		}

		logger.Info("Request handled",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_addr", c.ClientIP()))
	}
}

func setupRouter(as *AppState) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(cors.Default())
	router.Use(RequestLoggingMiddleware(as.Logger))
	router.Use(gin.Recovery())

	router.GET("/health", as.HealthManager.Handler)

	users.NewHandlers(as.UserService, as.Logger).RegisterRoutes(router)

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), config.Http().ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		if as.DB != nil {
			if err := as.DB.Close(); err != nil {
				logger.Error("Error closing database", zap.Error(err))
			}
		}

		done <- struct{}{}
	}()

	return done
}

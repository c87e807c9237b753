package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

const unexpectedErrorMessage = "An unexpected error occurred"

// ErrorResponse is the body of a single-error response
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// ValidationErrorResponse is the body of a validation failure
type ValidationErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Errors    []string  `json:"errors"`
}

// Handlers provides HTTP handlers for user operations
type Handlers struct {
	service UserManager
	logger  *zap.Logger
}

// NewHandlers creates new user handlers
func NewHandlers(service UserManager, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the user routes under /users
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/search", h.SearchByBirthDate)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.PartialUpdateUser)
		users.PUT("/:id", h.ReplaceUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// CreateUser handles POST /users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bodyError(err))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser handles GET /users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers handles GET /users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// PartialUpdateUser handles PATCH /users/:id
func (h *Handlers) PartialUpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req PartialUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bodyError(err))
		return
	}

	user, err := h.service.PartialUpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ReplaceUser handles PUT /users/:id
func (h *Handlers) ReplaceUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bodyError(err))
		return
	}

	user, err := h.service.ReplaceUser(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SearchByBirthDate handles GET /users/search?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) SearchByBirthDate(c *gin.Context) {
	var (
		r          DateRange
		violations []Violation
	)
	for _, param := range []struct {
		name string
		dst  **Date
	}{{"from", &r.From}, {"to", &r.To}} {
		raw := c.Query(param.name)
		if raw == "" {
			continue
		}
		d, err := ParseDate(raw)
		if err != nil {
			violations = append(violations, Violation{Field: param.name, Message: "must be a date in YYYY-MM-DD format"})
			continue
		}
		*param.dst = &d
	}
	if err := NewValidationError(violations); err != nil {
		h.respondError(c, err)
		return
	}

	users, err := h.service.FindByBirthDateRange(c.Request.Context(), r)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *Handlers) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, &ValidationError{Violations: []Violation{{Field: "id", Message: "must be a valid UUID"}}})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to HTTP responses
func (h *Handlers) respondError(c *gin.Context, err error) {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.Error(err),
	}

	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		h.logger.Warn("Request validation failed", fields...)
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Timestamp: time.Now(),
			Status:    StatusName(http.StatusBadRequest),
			Errors:    validationErr.Messages(),
		})
	case errors.As(err, &notFoundErr):
		h.logger.Warn("User not found", fields...)
		c.JSON(http.StatusNotFound, newErrorResponse(http.StatusNotFound, notFoundErr.Error()))
	case errors.As(err, &conflictErr):
		h.logger.Warn("User conflict", fields...)
		c.JSON(http.StatusConflict, newErrorResponse(http.StatusConflict, conflictErr.Message))
	default:
		h.logger.Error("Unexpected error handling user request", fields...)
		c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, unexpectedErrorMessage))
	}
}

func newErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{
		Timestamp: time.Now(),
		Status:    StatusName(status),
		Message:   message,
	}
}

// StatusName renders an HTTP status as an upper snake case name, e.g. NOT_FOUND
func StatusName(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// bodyError reports an unreadable request body as a validation failure
func bodyError(err error) error {
	return &ValidationError{Violations: []Violation{{Field: "body", Message: err.Error()}}}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	if logger == nil {
		logger = utils.NewSlogLogger(nil)
	}
	return BaseHandler{logger: logger}
}

// LogRequest logs at info level with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, append(args, "user_id", c.GetString(ContextUserID))...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.FromContext(c, h.logger).Error(msg, append(args, "error", err)...)
}

// bindError answers a request whose body could not be decoded.
func (h *BaseHandler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: "Invalid request payload",
		Details: err.Error(),
	})
}

// currentUserID returns the authenticated user id. It answers 401 and
// returns false when the request is anonymous.
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validationErrors.Message(),
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "User already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authorized, token failed"})
	case errors.Is(err, services.ErrWrongPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Current password is incorrect"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
	case errors.Is(err, services.ErrBankNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question bank not found"})
	case errors.Is(err, services.ErrBlobNotAvailable):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "File not found"})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "File too large", Details: err.Error()})
	case errors.Is(err, services.ErrUnsupportedFile):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unsupported file type", Details: err.Error()})
	case errors.Is(err, services.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid answer", Details: err.Error()})
	case errors.Is(err, services.ErrSessionSubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test already submitted"})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test is not in progress"})
	case errors.Is(err, services.ErrSessionNotRetried):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Only a submitted test can be retried"})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Server error",
		})
	}
}

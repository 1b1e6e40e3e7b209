package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrUnauthenticated    = errors.New("authentication required")

	ErrBankNotFound     = errors.New("question bank not found")
	ErrUnsupportedFile  = errors.New("unsupported file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrBlobNotAvailable = errors.New("uploaded file not found")

	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not in progress")
	ErrSessionSubmitted  = errors.New("session already submitted")
	ErrSessionNotRetried = errors.New("only a submitted session can be retried")
	ErrInvalidAnswer     = errors.New("answer is not an option of the current question")
)

// ValidationErrors is returned when a request fails validation.
type ValidationErrors = validator.ValidationErrors

// BusinessRuleError reports a request that is well formed but not allowed.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

// PermissionError reports an action on a resource the user may not touch.
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s may not %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

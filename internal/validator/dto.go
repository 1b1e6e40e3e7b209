package validator

import (
	"strings"

	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type SignupRequest struct {
	Name            string `json:"name" validate:"required,display_name"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Normalize trims the name and canonicalizes the email.
func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the non-file part of a profile update form.
type UpdateProfileRequest struct {
	Name *string `form:"name" validate:"omitempty,display_name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type ProgressDetailsRequest struct {
	CorrectAnswers *int `json:"correctAnswers" validate:"omitempty,gte=0"`
	Attempted      *int `json:"attempted" validate:"omitempty,gte=0"`
	TimeSpent      *int `json:"timeSpent" validate:"omitempty,gte=0"`
}

// SaveProgressRequest is a finished test. Counters may be sent inside
// details or at the top level.
type SaveProgressRequest struct {
	TestType   string   `json:"testType" validate:"required,max=200"`
	TestID     string   `json:"testId" validate:"required,max=100"`
	Score      *float64 `json:"score" validate:"required"`
	TotalMarks *float64 `json:"totalMarks" validate:"required,gt=0"`
	Accuracy   *float64 `json:"accuracy" validate:"omitempty,gte=0,max=100"`

	Details *ProgressDetailsRequest `json:"details"`
	ProgressDetailsRequest
}

// ResolveDetails prefers the nested details, falling back to top-level fields.
func (r *SaveProgressRequest) ResolveDetails() models.ProgressDetails {
	pick := func(nested, top *int) int {
		if nested != nil {
			return *nested
		}
		if top != nil {
			return *top
		}
		return 0
	}
	nested := r.Details
	if nested == nil {
		nested = &ProgressDetailsRequest{}
	}
	return models.ProgressDetails{
		CorrectAnswers: pick(nested.CorrectAnswers, r.CorrectAnswers),
		Attempted:      pick(nested.Attempted, r.Attempted),
		TimeSpent:      pick(nested.TimeSpent, r.TimeSpent),
	}
}

// ResolveAccuracy returns the sent accuracy, or the score percentage.
func (r *SaveProgressRequest) ResolveAccuracy() float64 {
	if r.Accuracy != nil {
		return *r.Accuracy
	}
	return *r.Score / *r.TotalMarks * 100
}

type StartSessionRequest struct {
	Bank   string `json:"bank" validate:"required,max=100"`
	TestID string `json:"testId" validate:"omitempty,test_id"`
}

type SessionInputRequest struct {
	Input engine.AnswerInput `json:"input"`
}

type NavigateRequest struct {
	Direction engine.Direction    `json:"direction" validate:"required,oneof=next prev"`
	Input     *engine.AnswerInput `json:"input"`
}

type SubmitRequest struct {
	Confirm bool `json:"confirm"`
}

// ImportBankRequest is the form part of a question bank import.
type ImportBankRequest struct {
	Slug     string `form:"slug" validate:"required,max=100"`
	Name     string `form:"name" validate:"omitempty,max=200"`
	TestType string `form:"testType" validate:"omitempty,max=200"`
}

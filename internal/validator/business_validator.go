package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

const (
	MinPasswordLength = 6
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxTestNumber     = 10
)

// AllowedImageExtensions are the profile picture types accepted on upload.
var AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// ValidationError represents a single failed rule.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Message is the user facing summary: the first failure.
func (ve ValidationErrors) Message() string {
	if len(ve) == 0 {
		return "Validation failed"
	}
	return ve[0].Message
}

// Validator wraps go-playground/validator with the service's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()
	return v
}

// Validate runs struct validation. A nil result means the value is valid.
func (v *Validator) Validate(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator errors into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email address"
	case "min":
		if fe.Field() == "password" || fe.Field() == "newPassword" {
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "display_name":
		return fmt.Sprintf("Name must be between %d and %d characters", MinNameLength, MaxNameLength)
	case "test_id":
		return fmt.Sprintf("%s must be one of mocktest1..mocktest%d", fe.Field(), MaxTestNumber)
	case "question_type":
		return fmt.Sprintf("%s must be one of mcq, msq, numerical", fe.Field())
	case "image_ext":
		return "Only image files are allowed (jpg, jpeg, png, gif)"
	case "eqfield":
		return "Passwords do not match"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func (v *Validator) registerBusinessRules() {
	// Display names: 2..50 characters after trimming
	v.validate.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	})

	v.validate.RegisterValidation("test_id", func(fl validator.FieldLevel) bool {
		return IsValidTestID(fl.Field().String())
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("image_ext", func(fl validator.FieldLevel) bool {
		return IsAllowedImage(fl.Field().String())
	})
}

// IsValidName reports whether a trimmed name has an allowed length.
func IsValidName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= MinNameLength && n <= MaxNameLength
}

// IsValidTestID accepts mocktest1 through mocktest10.
func IsValidTestID(id string) bool {
	rest, ok := strings.CutPrefix(id, "mocktest")
	if !ok || rest == "" || strings.HasPrefix(rest, "0") {
		return false
	}
	n, err := strconv.Atoi(rest)
	return err == nil && n >= 1 && n <= MaxTestNumber
}

// IsAllowedImage checks a file name's extension against AllowedImageExtensions.
func IsAllowedImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ValidateSignup validates a signup request.
func (v *Validator) ValidateSignup(req *SignupRequest) ValidationErrors {
	req.Normalize()
	if req.Name == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return ValidationErrors{{Field: "request", Message: "All fields are required", Rule: "required"}}
	}
	return v.Validate(req)
}

// ValidateLogin validates a login request.
func (v *Validator) ValidateLogin(req *LoginRequest) ValidationErrors {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return ValidationErrors{{Field: "request", Message: "Please provide both email and password", Rule: "required"}}
	}
	return v.Validate(req)
}

// ValidatePasswordChange validates a password change request.
func (v *Validator) ValidatePasswordChange(req *ChangePasswordRequest) ValidationErrors {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return ValidationErrors{{Field: "request", Message: "All fields are required", Rule: "required"}}
	}
	errs := v.Validate(req)
	for i := range errs {
		if errs[i].Rule == "eqfield" {
			errs[i].Message = "New passwords do not match"
		}
	}
	return errs
}

// ValidateSaveProgress validates a progress submission.
func (v *Validator) ValidateSaveProgress(req *SaveProgressRequest) ValidationErrors {
	if req.TestType == "" || req.TestID == "" || req.Score == nil || req.TotalMarks == nil {
		return ValidationErrors{{
			Field:   "request",
			Message: "Missing required fields: testType, testId, score, totalMarks",
			Rule:    "required",
		}}
	}
	if *req.TotalMarks <= 0 {
		return ValidationErrors{{
			Field:   "totalMarks",
			Message: "Invalid score or totalMarks values",
			Value:   *req.TotalMarks,
			Rule:    "business_logic",
		}}
	}
	return v.Validate(req)
}

// ValidateQuestion checks a bank question beyond its struct tags: choice
// questions need options, and every key value must be one of them.
func (v *Validator) ValidateQuestion(index int, q *models.Question) ValidationErrors {
	var errs ValidationErrors
	prefix := fmt.Sprintf("questions[%d]", index)

	if strings.TrimSpace(q.Text) == "" {
		errs = append(errs, ValidationError{Field: prefix + ".question", Message: "question text is required", Rule: "required"})
	}
	if !q.Type.IsValid() {
		errs = append(errs, ValidationError{Field: prefix + ".type", Message: "type must be one of mcq, msq, numerical", Value: q.Type, Rule: "question_type"})
	}
	if q.Marks <= 0 {
		errs = append(errs, ValidationError{Field: prefix + ".marks", Message: "marks must be positive", Value: q.Marks, Rule: "gt"})
	}
	if q.Answer.IsZero() {
		errs = append(errs, ValidationError{Field: prefix + ".answer", Message: "answer is required", Rule: "required"})
		return errs
	}

	if q.Kind() == models.QuestionTypeNumerical {
		if _, err := strconv.ParseFloat(strings.TrimSpace(q.Answer.Values[0]), 64); err != nil {
			errs = append(errs, ValidationError{Field: prefix + ".answer", Message: "numerical answer must be a number", Value: q.Answer.String(), Rule: "numeric"})
		}
		return errs
	}

	if len(q.Options) == 0 {
		errs = append(errs, ValidationError{Field: prefix + ".options", Message: "choice questions need options", Rule: "required"})
		return errs
	}
	for _, value := range q.Answer.Values {
		found := false
		for _, opt := range q.Options {
			if opt == value {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, ValidationError{Field: prefix + ".answer", Message: "answer is not one of the options", Value: value, Rule: "business_logic"})
		}
	}
	return errs
}

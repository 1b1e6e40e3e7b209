package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

func TestIsValidTestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"mocktest1", true},
		{"mocktest10", true},
		{"mocktest0", false},
		{"mocktest11", false},
		{"mocktest01", false},
		{"mocktest", false},
		{"quiz1", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTestID(tt.id))
		})
	}
}

func TestIsAllowedImage(t *testing.T) {
	assert.True(t, IsAllowedImage("me.JPG"))
	assert.True(t, IsAllowedImage("a.b.gif"))
	assert.False(t, IsAllowedImage("notes.pdf"))
	assert.False(t, IsAllowedImage("noext"))
}

func TestValidateSignup(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     SignupRequest
		wantMsg string
	}{
		{"valid", SignupRequest{Name: " Asha ", Email: "Asha@Example.com ", Password: "secret1", ConfirmPassword: "secret1"}, ""},
		{"missing field", SignupRequest{Name: "Asha", Email: "a@b.co", Password: "secret1"}, "All fields are required"},
		{"mismatch", SignupRequest{Name: "Asha", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2"}, "Passwords do not match"},
		{"short password", SignupRequest{Name: "Asha", Email: "a@b.co", Password: "abc", ConfirmPassword: "abc"}, "Password must be at least 6 characters"},
		{"short name", SignupRequest{Name: " A ", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, "Name must be between 2 and 50 characters"},
		{"bad email", SignupRequest{Name: "Asha", Email: "nope", Password: "secret1", ConfirmPassword: "secret1"}, "Please provide a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateSignup(&tt.req)
			if tt.wantMsg == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantMsg, errs.Message())
		})
	}
}

func TestValidateSignup_Normalizes(t *testing.T) {
	req := SignupRequest{Name: "  Ravi ", Email: " RAVI@X.IO ", Password: "secret1", ConfirmPassword: "secret1"}
	require.Empty(t, New().ValidateSignup(&req))
	assert.Equal(t, "Ravi", req.Name)
	assert.Equal(t, "ravi@x.io", req.Email)
}

func TestValidatePasswordChange(t *testing.T) {
	v := New()
	errs := v.ValidatePasswordChange(&ChangePasswordRequest{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret2"})
	require.Len(t, errs, 1)
	assert.Equal(t, "New passwords do not match", errs.Message())

	assert.Empty(t, v.ValidatePasswordChange(&ChangePasswordRequest{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret1"}))
}

func ptr[T any](v T) *T { return &v }

func TestValidateSaveProgress(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     SaveProgressRequest
		wantMsg string
	}{
		{"valid zero score", SaveProgressRequest{TestType: "Engineering Math", TestID: "mocktest1", Score: ptr(0.0), TotalMarks: ptr(40.0)}, ""},
		{"missing score", SaveProgressRequest{TestType: "x", TestID: "y", TotalMarks: ptr(40.0)}, "Missing required fields: testType, testId, score, totalMarks"},
		{"zero total", SaveProgressRequest{TestType: "x", TestID: "y", Score: ptr(1.0), TotalMarks: ptr(0.0)}, "Invalid score or totalMarks values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateSaveProgress(&tt.req)
			if tt.wantMsg == "" {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.wantMsg, errs.Message())
		})
	}
}

func TestSaveProgressRequest_Resolve(t *testing.T) {
	req := SaveProgressRequest{
		Score:      ptr(30.0),
		TotalMarks: ptr(40.0),
		Details:    &ProgressDetailsRequest{CorrectAnswers: ptr(18)},
		ProgressDetailsRequest: ProgressDetailsRequest{
			CorrectAnswers: ptr(1),
			Attempted:      ptr(22),
			TimeSpent:      ptr(1800),
		},
	}

	assert.Equal(t, models.ProgressDetails{CorrectAnswers: 18, Attempted: 22, TimeSpent: 1800}, req.ResolveDetails())
	assert.InDelta(t, 75.0, req.ResolveAccuracy(), 1e-9)

	req.Accuracy = ptr(81.82)
	assert.Equal(t, 81.82, req.ResolveAccuracy())
}

func TestValidateQuestion(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		q        models.Question
		wantRule string
	}{
		{"valid mcq", models.Question{Text: "2+2?", Type: models.QuestionTypeMCQ, Options: []string{"3", "4"}, Answer: models.SingleAnswer("4"), Marks: 1}, ""},
		{"valid numerical", models.Question{Text: "pi?", Type: models.QuestionTypeNumerical, Answer: models.NumericAnswer(3.14), Marks: 2}, ""},
		{"key not an option", models.Question{Text: "q", Type: models.QuestionTypeMSQ, Options: []string{"a", "b"}, Answer: models.MultiAnswer("a", "c"), Marks: 2}, "business_logic"},
		{"no options", models.Question{Text: "q", Type: models.QuestionTypeMCQ, Answer: models.SingleAnswer("a"), Marks: 1}, "required"},
		{"bad type", models.Question{Text: "q", Type: "essay", Options: []string{"a"}, Answer: models.SingleAnswer("a"), Marks: 1}, "question_type"},
		{"non numeric key", models.Question{Text: "q", Type: models.QuestionTypeNumerical, Answer: models.SingleAnswer("abc"), Marks: 1}, "numeric"},
		{"zero marks", models.Question{Text: "q", Type: models.QuestionTypeMCQ, Options: []string{"a"}, Answer: models.SingleAnswer("a")}, "gt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateQuestion(3, &tt.q)
			if tt.wantRule == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantRule, errs[0].Rule)
			assert.Contains(t, errs[0].Field, "questions[3]")
		})
	}
}

func TestValidate_StartSession(t *testing.T) {
	v := New()
	assert.Empty(t, v.Validate(&StartSessionRequest{Bank: "engineering_math"}))
	assert.Empty(t, v.Validate(&StartSessionRequest{Bank: "engineering_math", TestID: "mocktest7"}))

	errs := v.Validate(&StartSessionRequest{Bank: "engineering_math", TestID: "mocktest42"})
	require.Len(t, errs, 1)
	assert.Equal(t, "testId", errs[0].Field)
	assert.Equal(t, "test_id", errs[0].Rule)
}

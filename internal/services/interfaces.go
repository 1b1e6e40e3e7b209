package services

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// ===== UPLOADS =====

// FileUpload is a file received from a multipart form.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ===== SESSION DTOs =====

// SessionResponse is a session snapshot as returned by the API.
type SessionResponse = engine.Snapshot

// SubmitResponse carries either the confirmation prompt or the graded result.
type SubmitResponse struct {
	NeedsConfirmation bool             `json:"needsConfirmation"`
	Unanswered        int              `json:"unanswered"`
	Session           *SessionResponse `json:"session"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Signup(ctx context.Context, req *validator.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *validator.LoginRequest) (*models.AuthResponse, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)

	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req *validator.UpdateProfileRequest, pic *FileUpload) (*models.UserProfile, error)
	ChangePassword(ctx context.Context, userID string, req *validator.ChangePasswordRequest) error

	// OpenUpload streams a stored upload such as a profile picture.
	OpenUpload(ctx context.Context, key string) (io.ReadCloser, error)
}

type ProgressService interface {
	// GetProgress returns the history, optionally narrowed to one test type,
	// with the overall statistics.
	GetProgress(ctx context.Context, userID, testType string) (*models.ProgressResponse, error)
	SaveProgress(ctx context.Context, userID string, req *validator.SaveProgressRequest) (*models.SaveProgressResponse, error)
	Leaderboard(ctx context.Context, currentUserID string) (*models.LeaderboardResponse, error)
	Export(ctx context.Context, userID string) (*bytes.Buffer, error)

	// WarmLeaderboard recomputes the cached leaderboard.
	WarmLeaderboard(ctx context.Context) error
	// HandleProgressSaved reacts to progress.saved events.
	HandleProgressSaved(ctx context.Context, event *events.Event) error
}

type QuestionBankService interface {
	List(ctx context.Context) ([]models.QuestionBankSummary, error)
	GetBank(ctx context.Context, slug string) (*models.QuestionBank, error)
	// GetQuestions returns the bank's question pool, cached.
	GetQuestions(ctx context.Context, slug string) ([]models.Question, error)

	Import(ctx context.Context, req *validator.ImportBankRequest, file *FileUpload) (*models.ImportResult, error)
	// SeedFromDir loads *.json banks from a directory. Banks already present are left alone.
	SeedFromDir(ctx context.Context, dir string) (int, error)
	Template() (*bytes.Buffer, error)
}

type SessionService interface {
	Start(ctx context.Context, userID string, req *validator.StartSessionRequest) (*SessionResponse, error)
	Get(ctx context.Context, userID, sessionID string) (*SessionResponse, error)
	SetInput(ctx context.Context, userID, sessionID string, input engine.AnswerInput) (*SessionResponse, error)
	SaveAnswer(ctx context.Context, userID, sessionID string) (*SessionResponse, error)
	Navigate(ctx context.Context, userID, sessionID string, req *validator.NavigateRequest) (*SessionResponse, error)
	Submit(ctx context.Context, userID, sessionID string, confirm bool) (*SubmitResponse, error)
	Retry(ctx context.Context, userID, sessionID string) (*SessionResponse, error)
	Leave(ctx context.Context, userID, sessionID string) error

	// SweepIdle discards sessions without activity for maxIdle.
	SweepIdle(ctx context.Context, maxIdle time.Duration) int
	// Close stops every timer and waits for pending result saves.
	Close()
}

// ServiceManager owns the services and their lifecycle.
type ServiceManager interface {
	Auth() AuthService
	Progress() ProgressService
	QuestionBank() QuestionBankService
	Session() SessionService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

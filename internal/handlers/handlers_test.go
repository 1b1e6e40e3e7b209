package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/mocktest-service/internal/auth"
	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/storage"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
	"github.com/SAP-F-2025/mocktest-service/pkg"
)

type testServer struct {
	router *gin.Engine
	repo   repositories.Repository
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, pkg.Migrate(db))

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{DB: db})
	require.NoError(t, repoManager.Initialize())

	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("handler-secret", time.Hour)
	sm := services.NewServiceManager(repoManager, nil, events.NewMockEventPublisher(slogger), slogger, validator.New(), services.ServiceManagerConfig{
		Auth: services.AuthServiceConfig{Tokens: tokens, Blobs: blobs},
		Session: services.SessionServiceConfig{
			DurationSeconds: 600,
			Selector:        engine.SelectorConfig{TotalQuestions: 3, TotalMarks: 3},
		},
	})
	require.NoError(t, sm.Initialize(context.Background()))
	t.Cleanup(func() { sm.Shutdown(context.Background()) })

	log := utils.NewSlogLogger(slogger)
	router := gin.New()
	SetupMiddleware(router, log, []string{"*"})
	NewHandlerManager(sm, log).SetupRoutes(router)

	return &testServer{router: router, repo: repoManager.GetRepository(), tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, method, path, token string, fields map[string]string, fileField, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// userToken stores a user with the given role and returns a token for it.
func (s *testServer) userToken(t *testing.T, id string, role models.UserRole) string {
	t.Helper()
	require.NoError(t, s.repo.User().Create(context.Background(), nil, &models.User{
		ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: "x", Role: role,
	}))
	token, err := s.tokens.Issue(id)
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// sessionView is the part of a session snapshot the routes are checked against.
type sessionView struct {
	ID             string       `json:"id"`
	State          engine.State `json:"state"`
	TotalQuestions int          `json:"totalQuestions"`
	Answered       int          `json:"answered"`
	Result         *struct {
		CorrectCount int `json:"correctCount"`
	} `json:"result"`
}

func bankFile(n int) string {
	questions := make([]string, n)
	for i := range questions {
		questions[i] = fmt.Sprintf(`{"question":"Q%d","type":"mcq","options":["A","B"],"answer":"A","marks":1}`, i+1)
	}
	return "[" + strings.Join(questions, ",") + "]"
}

func TestHealthAndMiddleware(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(utils.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(utils.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, w)["status"])
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	signup := map[string]string{"name": "Asha", "email": "asha@example.com", "password": "secret1", "confirmPassword": "secret1"}
	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.AuthResponse](t, w)
	assert.NotEmpty(t, created.Token)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
		wantMsg    string
	}{
		{"duplicate signup", http.MethodPost, "/api/v1/auth/signup", "", signup, http.StatusConflict, "User already exists"},
		{"mismatched passwords", http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
			"name": "Ravi", "email": "ravi@example.com", "password": "secret1", "confirmPassword": "secret2",
		}, http.StatusBadRequest, "Passwords do not match"},
		{"wrong password", http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "asha@example.com", "password": "nope12"}, http.StatusUnauthorized, "Invalid credentials"},
		{"login", http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"}, http.StatusOK, "Login successful"},
		{"profile without token", http.MethodGet, "/api/v1/auth/profile", "", nil, http.StatusUnauthorized, "Not authorized, no token"},
		{"profile with bad token", http.MethodGet, "/api/v1/auth/profile", "garbage", nil, http.StatusUnauthorized, "Not authorized, token failed"},
		{"change password wrong current", http.MethodPut, "/api/v1/auth/password", created.Token, map[string]string{
			"currentPassword": "bad123", "newPassword": "better1", "confirmPassword": "better1",
		}, http.StatusBadRequest, "Current password is incorrect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantMsg, decode[map[string]interface{}](t, w)["message"])
		})
	}

	w = s.do(t, http.MethodGet, "/api/v1/auth/profile", created.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[struct {
		User models.UserProfile `json:"user"`
	}](t, w)
	assert.Equal(t, "asha@example.com", profile.User.Email)
}

func TestUpdateProfileAndServeUpload(t *testing.T) {
	s := newTestServer(t)
	token := s.userToken(t, "u-1", models.RoleStudent)

	w := s.upload(t, http.MethodPut, "/api/v1/auth/profile", token, map[string]string{"name": "Meera"}, "profilePic", "me.png", "png-bytes")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		User models.UserProfile `json:"user"`
	}](t, w)
	assert.Equal(t, "Meera", resp.User.Name)
	require.True(t, strings.HasPrefix(resp.User.ProfilePic, storage.PublicPrefix))

	w = s.do(t, http.MethodGet, resp.User.ProfilePic, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = s.upload(t, http.MethodPut, "/api/v1/auth/profile", token, nil, "profilePic", "notes.txt", "text")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/uploads/users/u-1/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.userToken(t, "u-1", models.RoleStudent)

	w := s.do(t, http.MethodPost, "/api/v1/progress/save", token, map[string]interface{}{
		"testType": "JEE Physics", "testId": "mocktest1", "score": 30, "totalMarks": 40,
		"details": map[string]int{"correctAnswers": 8, "attempted": 10, "timeSpent": 600},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/progress/save", token, map[string]interface{}{"testType": "JEE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields: testType, testId, score, totalMarks", decode[ErrorResponse](t, w).Message)

	w = s.do(t, http.MethodGet, "/api/v1/progress?testType=JEE+Physics", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[models.ProgressResponse](t, w)
	require.Len(t, progress.Progress, 1)
	assert.Equal(t, 600, progress.Progress[0].TimeSpent)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[models.LeaderboardResponse](t, w)
	require.Len(t, board.Leaderboard, 1)
	assert.False(t, board.Leaderboard[0].IsCurrentUser)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard", token, nil)
	board = decode[models.LeaderboardResponse](t, w)
	assert.True(t, board.Leaderboard[0].IsCurrentUser)

	w = s.do(t, http.MethodGet, "/api/v1/progress/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "progress.xlsx")
}

func TestQuestionBankRoutes(t *testing.T) {
	s := newTestServer(t)
	student := s.userToken(t, "u-1", models.RoleStudent)
	admin := s.userToken(t, "a-1", models.RoleAdmin)

	w := s.upload(t, http.MethodPost, "/api/v1/question-banks/import", student, map[string]string{"slug": "physics"}, "file", "physics.json", bankFile(4))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.upload(t, http.MethodPost, "/api/v1/question-banks/import", admin, map[string]string{"slug": "physics", "testType": "JEE Physics"}, "file", "physics.json", bankFile(4))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4, decode[models.ImportResult](t, w).Created)

	w = s.upload(t, http.MethodPost, "/api/v1/question-banks/import", admin, map[string]string{"slug": "physics"}, "file", "physics.csv", "q,a")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/question-banks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	banks := decode[struct {
		Banks []models.QuestionBankSummary `json:"banks"`
	}](t, w)
	require.Len(t, banks.Banks, 1)
	assert.Equal(t, "JEE Physics", banks.Banks[0].TestType)

	w = s.do(t, http.MethodGet, "/api/v1/question-banks/physics/questions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.QuestionsResponse](t, w).Questions, 4)

	w = s.do(t, http.MethodGet, "/api/v1/question-banks/chemistry/questions", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/question-banks/template", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.userToken(t, "a-1", models.RoleAdmin)
	student := s.userToken(t, "u-1", models.RoleStudent)
	other := s.userToken(t, "u-2", models.RoleStudent)

	w := s.upload(t, http.MethodPost, "/api/v1/question-banks/import", admin, map[string]string{"slug": "physics"}, "file", "physics.json", bankFile(5))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/sessions", student, map[string]string{"bank": "physics", "testId": "mocktest2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decode[sessionView](t, w)
	assert.Equal(t, engine.StateInProgress, snap.State)
	assert.Equal(t, 3, snap.TotalQuestions)
	base := "/api/v1/sessions/" + snap.ID

	w = s.do(t, http.MethodGet, base, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/sessions/unknown", student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, base+"/input", student, map[string]interface{}{"input": map[string][]string{"checked": {"Z"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/navigate", student, map[string]interface{}{
		"direction": "next",
		"input":     map[string][]string{"checked": {"A"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[sessionView](t, w).Answered)

	w = s.do(t, http.MethodPost, base+"/submit", student, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Are you sure you want to submit the test? You have 2 unanswered questions.", decode[ErrorResponse](t, w).Message)

	w = s.do(t, http.MethodPost, base+"/submit", student, map[string]bool{"confirm": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	submitted := decode[struct {
		Session sessionView `json:"session"`
	}](t, w)
	require.NotNil(t, submitted.Session.Result)
	assert.Equal(t, engine.StateSubmitted, submitted.Session.State)
	assert.Equal(t, 1, submitted.Session.Result.CorrectCount)

	w = s.do(t, http.MethodPost, base+"/submit", student, map[string]bool{"confirm": true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Test already submitted", decode[ErrorResponse](t, w).Message)

	w = s.do(t, http.MethodPost, base+"/retry", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.StateInProgress, decode[sessionView](t, w).State)

	w = s.do(t, http.MethodDelete, base, student, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, base, student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmMessage(t *testing.T) {
	tests := []struct {
		unanswered int
		want       string
	}{
		{0, "Are you sure you want to submit the test?"},
		{1, "Are you sure you want to submit the test? You have 1 unanswered question."},
		{3, "Are you sure you want to submit the test? You have 3 unanswered questions."},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.unanswered), func(t *testing.T) {
			assert.Equal(t, tt.want, confirmMessage(tt.unanswered))
		})
	}
}

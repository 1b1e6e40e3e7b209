package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/mocktest-service/internal/auth"
	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/mocktest-service/internal/storage"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
	"github.com/SAP-F-2025/mocktest-service/pkg"
)

type testEnv struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	redis     *miniredis.Miniredis
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	tokens    *auth.TokenManager
	blobs     storage.BlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, pkg.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client}),
		cache:     cache.NewCacheManager(client),
		redis:     mr,
		publisher: events.NewMockEventPublisher(log),
		logger:    log,
		validator: validator.New(),
		tokens:    auth.NewTokenManager("test-secret", 0),
		blobs:     blobs,
	}
}

func (e *testEnv) authService() AuthService {
	return NewAuthService(e.repo, e.logger, e.validator, AuthServiceConfig{
		Tokens: e.tokens,
		Blobs:  e.blobs,
		Cache:  e.cache,
	})
}

func (e *testEnv) progressService() ProgressService {
	return NewProgressService(e.repo, e.logger, e.validator, e.publisher, e.cache)
}

func (e *testEnv) bankService() QuestionBankService {
	return NewQuestionBankService(e.repo, e.logger, e.validator, e.cache)
}

func (e *testEnv) createUser(t *testing.T, id, name string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	user := &models.User{
		ID:           id,
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: hash,
		Role:         models.RoleStudent,
	}
	require.NoError(t, e.repo.User().Create(context.Background(), nil, user))
	return user
}

func ptr[T any](v T) *T { return &v }

// bankJSON builds a question bank file of n single-choice questions whose
// answer is always "A".
func bankJSON(n, marks int) string {
	questions := make([]string, n)
	for i := range questions {
		questions[i] = fmt.Sprintf(`{"question":"Question %d","type":"mcq","options":["A","B","C","D"],"answer":"A","marks":%d}`, i+1, marks)
	}
	return `{"name":"Physics","testType":"JEE Physics","questions":[` + strings.Join(questions, ",") + `]}`
}

func (e *testEnv) importBank(t *testing.T, slug string, n, marks int) {
	t.Helper()
	content := bankJSON(n, marks)
	_, err := e.bankService().Import(context.Background(), &validator.ImportBankRequest{Slug: slug}, &FileUpload{
		Filename: slug + ".json",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	require.NoError(t, err)
}

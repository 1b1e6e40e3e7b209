package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// DefaultLeaderboardLimit caps the ranked user list.
const DefaultLeaderboardLimit = 100

// ProgressFilters narrows a user's history.
type ProgressFilters struct {
	TestType *string
	Limit    int
	Offset   int
}

// ProgressRepository stores append-only test history.
type ProgressRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.TestProgress) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters ProgressFilters) ([]models.TestProgress, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
}

// IdentityProvider verifies tokens issued by an external identity service.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

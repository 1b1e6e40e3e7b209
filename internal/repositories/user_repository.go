package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// UserRepository is the account store. Emails are stored lowercased.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, id, passwordHash string) error
	UpdateStats(ctx context.Context, tx *gorm.DB, id string, stats models.OverallStats) error

	// Leaderboard lists users with at least one test, best first.
	Leaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]models.User, error)
}

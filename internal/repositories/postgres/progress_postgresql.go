package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) repositories.ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.TestProgress) error {
	if err := getDB(r.db, tx).WithContext(ctx).Omit("User").Create(entry).Error; err != nil {
		return handleDBError(err, "create progress entry")
	}
	return nil
}

// ListByUser returns the history oldest first.
func (r *progressRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.ProgressFilters) ([]models.TestProgress, error) {
	query := getDB(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID)
	if filters.TestType != nil {
		query = query.Where("test_type = ?", *filters.TestType)
	}
	query = applyPagination(query.Order("date_taken ASC").Order("id ASC"), filters.Limit, filters.Offset)

	var entries []models.TestProgress
	if err := query.Find(&entries).Error; err != nil {
		return nil, handleDBError(err, "list progress")
	}
	return entries, nil
}

func (r *progressRepository) CountByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.TestProgress{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count progress")
	}
	return count, nil
}

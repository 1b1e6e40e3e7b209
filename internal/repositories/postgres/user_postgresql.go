package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := getDB(r.db, tx).WithContext(ctx).Create(user).Error; err != nil {
		return handleDBError(err, "create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := getDB(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by id")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by email")
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check user email")
	}
	return count > 0, nil
}

// Update saves the profile fields. Password and stats have their own writers.
func (r *userRepository) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	res := getDB(r.db, tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":        user.Name,
			"profile_pic": user.ProfilePic,
			"role":        user.Role,
		})
	if res.Error != nil {
		return handleDBError(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update user")
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, tx *gorm.DB, id, passwordHash string) error {
	res := getDB(r.db, tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return handleDBError(res.Error, "update user password")
	}
	if res.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update user password")
	}
	return nil
}

func (r *userRepository) UpdateStats(ctx context.Context, tx *gorm.DB, id string, stats models.OverallStats) error {
	res := getDB(r.db, tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stats_total_tests_taken": stats.TotalTestsTaken,
			"stats_average_score":     stats.AverageScore,
			"stats_best_score":        stats.BestScore,
		})
	if res.Error != nil {
		return handleDBError(res.Error, "update user stats")
	}
	if res.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update user stats")
	}
	return nil
}

func (r *userRepository) Leaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = repositories.DefaultLeaderboardLimit
	}

	var users []models.User
	if err := getDB(r.db, tx).WithContext(ctx).
		Select("id", "name", "email", "stats_total_tests_taken", "stats_average_score", "stats_best_score").
		Where("stats_total_tests_taken > ?", 0).
		Order("stats_average_score DESC").
		Order("stats_best_score DESC").
		Order("stats_total_tests_taken DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, handleDBError(err, "get leaderboard")
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

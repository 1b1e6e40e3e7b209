package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// QuestionBankRepository stores banks and their questions.
type QuestionBankRepository interface {
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.QuestionBank, error)
	List(ctx context.Context, tx *gorm.DB) ([]models.QuestionBankSummary, error)

	// Save creates the bank or updates its name and test type.
	Save(ctx context.Context, tx *gorm.DB, bank *models.QuestionBank) error
	// ReplaceQuestions deletes the bank's questions and inserts the new set in order.
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, bankID uint, questions []models.Question) error
	// GetQuestions returns the bank's questions in position order.
	GetQuestions(ctx context.Context, tx *gorm.DB, bankID uint) ([]models.Question, error)
	CountQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error)
}

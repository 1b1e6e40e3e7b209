package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

const questionInsertBatch = 100

type questionBankRepository struct {
	db *gorm.DB
}

func NewQuestionBankRepository(db *gorm.DB) repositories.QuestionBankRepository {
	return &questionBankRepository{db: db}
}

func (r *questionBankRepository) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.QuestionBank, error) {
	var bank models.QuestionBank
	if err := getDB(r.db, tx).WithContext(ctx).Where("slug = ?", slug).First(&bank).Error; err != nil {
		return nil, handleDBError(err, "get question bank by slug")
	}
	return &bank, nil
}

func (r *questionBankRepository) List(ctx context.Context, tx *gorm.DB) ([]models.QuestionBankSummary, error) {
	var banks []models.QuestionBankSummary
	if err := getDB(r.db, tx).WithContext(ctx).
		Table("question_banks qb").
		Select("qb.slug, qb.name, qb.test_type, qb.updated_at, COUNT(q.id) AS question_count").
		Joins("LEFT JOIN questions q ON q.bank_id = qb.id").
		Group("qb.id, qb.slug, qb.name, qb.test_type, qb.updated_at").
		Order("qb.name ASC").
		Scan(&banks).Error; err != nil {
		return nil, handleDBError(err, "list question banks")
	}
	return banks, nil
}

func (r *questionBankRepository) Save(ctx context.Context, tx *gorm.DB, bank *models.QuestionBank) error {
	db := getDB(r.db, tx).WithContext(ctx)

	err := db.Omit("Questions").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "test_type", "updated_at"}),
	}).Create(bank).Error
	if err != nil {
		return handleDBError(err, "save question bank")
	}

	// Some drivers don't return the id of an updated row.
	if bank.ID == 0 {
		var existing models.QuestionBank
		if err := db.Select("id").Where("slug = ?", bank.Slug).First(&existing).Error; err != nil {
			return handleDBError(err, "reload question bank")
		}
		bank.ID = existing.ID
	}
	return nil
}

func (r *questionBankRepository) ReplaceQuestions(ctx context.Context, tx *gorm.DB, bankID uint, questions []models.Question) error {
	db := getDB(r.db, tx).WithContext(ctx)

	if err := db.Where("bank_id = ?", bankID).Delete(&models.Question{}).Error; err != nil {
		return handleDBError(err, "delete bank questions")
	}
	if len(questions) == 0 {
		return nil
	}

	rows := make([]models.Question, len(questions))
	for i, q := range questions {
		q.ID = 0
		q.BankID = bankID
		q.Position = i
		rows[i] = q
	}
	if err := db.CreateInBatches(rows, questionInsertBatch).Error; err != nil {
		return handleDBError(err, "insert bank questions")
	}
	return nil
}

func (r *questionBankRepository) GetQuestions(ctx context.Context, tx *gorm.DB, bankID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("bank_id = ?", bankID).
		Order("position ASC").
		Find(&questions).Error; err != nil {
		return nil, handleDBError(err, "get bank questions")
	}
	return questions, nil
}

func (r *questionBankRepository) CountQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("bank_id = ?", bankID).
		Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count bank questions")
	}
	return count, nil
}

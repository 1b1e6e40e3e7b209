package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/importer"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// DefaultImportSize caps uploaded question bank files.
const DefaultImportSize = 10 << 20

const bankListKey = "banks"

type questionBankService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	maxImport int64
}

func NewQuestionBankService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cm *cache.CacheManager) QuestionBankService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &questionBankService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cm,
		maxImport: DefaultImportSize,
	}
}

func (s *questionBankService) List(ctx context.Context) ([]models.QuestionBankSummary, error) {
	var banks []models.QuestionBankSummary
	err := s.cache.Pool.CacheOrExecute(ctx, bankListKey, &banks, cache.PoolCacheConfig.TTL, func() (interface{}, error) {
		list, err := s.repo.QuestionBank().List(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list question banks: %w", err)
		}
		if list == nil {
			list = []models.QuestionBankSummary{}
		}
		return list, nil
	})
	return banks, err
}

func (s *questionBankService) GetBank(ctx context.Context, slug string) (*models.QuestionBank, error) {
	bank, err := s.repo.QuestionBank().GetBySlug(ctx, nil, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBankNotFound
		}
		return nil, fmt.Errorf("failed to get question bank: %w", err)
	}
	return bank, nil
}

func (s *questionBankService) GetQuestions(ctx context.Context, slug string) ([]models.Question, error) {
	var questions []models.Question
	err := s.cache.Pool.CacheOrExecute(ctx, cache.PoolKey(slug), &questions, cache.PoolCacheConfig.TTL, func() (interface{}, error) {
		bank, err := s.GetBank(ctx, slug)
		if err != nil {
			return nil, err
		}
		list, err := s.repo.QuestionBank().GetQuestions(ctx, nil, bank.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load questions: %w", err)
		}
		if list == nil {
			list = []models.Question{}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *questionBankService) Import(ctx context.Context, req *validator.ImportBankRequest, file *FileUpload) (*models.ImportResult, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	if file == nil {
		return nil, ValidationErrors{{Field: "file", Message: "file is required", Rule: "required"}}
	}
	if file.Size > s.maxImport {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, file.Size, s.maxImport)
	}
	format, err := importer.DetectFormat(file.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	parsed, err := importer.Parse(format, io.LimitReader(file.Content, s.maxImport))
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: err.Error(), Value: file.Filename, Rule: "format"}}
	}
	parsed.Slug = req.Slug
	if req.Name != "" {
		parsed.Name = req.Name
	}
	if req.TestType != "" {
		parsed.TestType = req.TestType
	}

	return s.store(ctx, parsed)
}

// store validates the parsed questions and replaces the bank's contents.
// Invalid questions are skipped and reported.
func (s *questionBankService) store(ctx context.Context, parsed *importer.ParsedBank) (*models.ImportResult, error) {
	result := &models.ImportResult{Bank: parsed.Slug, Errors: parsed.Errors}
	result.Skipped = len(parsed.Errors)

	valid := make([]models.Question, 0, len(parsed.Questions))
	for i := range parsed.Questions {
		q := parsed.Questions[i]
		if errs := s.validator.ValidateQuestion(i, &q); len(errs) > 0 {
			row := i + 1
			if i < len(parsed.Rows) {
				row = parsed.Rows[i]
			}
			result.Errors = append(result.Errors, models.ImportRowError{Row: row, Message: errs.Message()})
			result.Skipped++
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return result, NewBusinessRuleError("bank_not_empty", "no valid questions in file", map[string]interface{}{
			"bank":    parsed.Slug,
			"skipped": result.Skipped,
		})
	}

	if parsed.Name == "" {
		parsed.Name = importer.SlugTitle(parsed.Slug)
	}
	if parsed.TestType == "" {
		parsed.TestType = parsed.Name
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		_, err := tx.QuestionBank().GetBySlug(ctx, nil, parsed.Slug)
		switch {
		case err == nil:
			result.Replaced = true
		case !errors.Is(err, repositories.ErrNotFound):
			return fmt.Errorf("failed to look up bank: %w", err)
		}

		bank := &models.QuestionBank{Slug: parsed.Slug, Name: parsed.Name, TestType: parsed.TestType}
		if err := tx.QuestionBank().Save(ctx, nil, bank); err != nil {
			return fmt.Errorf("failed to save bank: %w", err)
		}
		if err := tx.QuestionBank().ReplaceQuestions(ctx, nil, bank.ID, valid); err != nil {
			return fmt.Errorf("failed to store questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Created = len(valid)
	cache.InvalidatePool(ctx, s.cache, parsed.Slug)
	s.logger.Info("Question bank imported",
		"bank", parsed.Slug,
		"created", result.Created,
		"skipped", result.Skipped,
		"replaced", result.Replaced)
	return result, nil
}

func (s *questionBankService) SeedFromDir(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	banks, err := importer.LoadDir(dir)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, parsed := range banks {
		if _, err := s.repo.QuestionBank().GetBySlug(ctx, nil, parsed.Slug); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return seeded, fmt.Errorf("failed to look up bank %s: %w", parsed.Slug, err)
		}

		result, err := s.store(ctx, parsed)
		if err != nil {
			s.logger.Warn("Skipping question bank", "bank", parsed.Slug, "error", err)
			continue
		}
		if result.Skipped > 0 {
			s.logger.Warn("Question bank has invalid questions", "bank", parsed.Slug, "skipped", result.Skipped, "errors", result.Errors)
		}
		seeded++
	}
	return seeded, nil
}

func (s *questionBankService) Template() (*bytes.Buffer, error) {
	return importer.BankTemplate()
}

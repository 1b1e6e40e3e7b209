package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/importer"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type progressService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     *cache.CacheManager
	now       func() time.Time
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cm *cache.CacheManager) ProgressService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &progressService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cm,
		now:       time.Now,
	}
}

func (s *progressService) GetProgress(ctx context.Context, userID, testType string) (*models.ProgressResponse, error) {
	if testType != "" {
		return s.loadProgress(ctx, userID, testType)
	}

	var resp models.ProgressResponse
	if err := s.cache.Stats.CacheOrExecute(ctx, userID, &resp, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.loadProgress(ctx, userID, "")
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *progressService) loadProgress(ctx context.Context, userID, testType string) (*models.ProgressResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Progress().CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count progress: %w", err)
	}

	stats := user.Stats
	var all []models.TestProgress
	if int64(stats.TotalTestsTaken) != total {
		// Stats drifted from the history; rebuild them.
		all, err = s.repo.Progress().ListByUser(ctx, nil, userID, repositories.ProgressFilters{})
		if err != nil {
			return nil, fmt.Errorf("failed to list progress: %w", err)
		}
		stats = models.CalculateStats(all)
		if err := s.repo.User().UpdateStats(ctx, nil, userID, stats); err != nil {
			s.logger.Warn("Failed to store recalculated stats", "error", err, "user_id", userID)
		} else {
			s.logger.Info("Recalculated stale stats", "user_id", userID, "tests", stats.TotalTestsTaken)
		}
	}

	entries := all
	if testType != "" || entries == nil {
		filters := repositories.ProgressFilters{}
		if testType != "" {
			filters.TestType = &testType
		}
		entries, err = s.repo.Progress().ListByUser(ctx, nil, userID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list progress: %w", err)
		}
	}

	resp := &models.ProgressResponse{
		Progress:     make([]models.ProgressEntry, 0, len(entries)),
		OverallStats: stats,
	}
	for i := range entries {
		resp.Progress = append(resp.Progress, models.NewProgressEntry(&entries[i]))
	}
	return resp, nil
}

func (s *progressService) SaveProgress(ctx context.Context, userID string, req *validator.SaveProgressRequest) (*models.SaveProgressResponse, error) {
	if errs := s.validator.ValidateSaveProgress(req); len(errs) > 0 {
		return nil, errs
	}

	entry := &models.TestProgress{
		UserID:     userID,
		TestType:   req.TestType,
		TestID:     req.TestID,
		Score:      *req.Score,
		TotalMarks: *req.TotalMarks,
		Accuracy:   req.ResolveAccuracy(),
		DateTaken:  s.now().UTC(),
		Details:    datatypes.NewJSONType(req.ResolveDetails()),
	}

	var stats models.OverallStats
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.User().GetByID(ctx, nil, userID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if err := tx.Progress().Create(ctx, nil, entry); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}

		history, err := tx.Progress().ListByUser(ctx, nil, userID, repositories.ProgressFilters{})
		if err != nil {
			return fmt.Errorf("failed to list progress: %w", err)
		}
		stats = models.CalculateStats(history)
		if err := tx.User().UpdateStats(ctx, nil, userID, stats); err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Progress saved",
		"user_id", userID,
		"test_type", entry.TestType,
		"test_id", entry.TestID,
		"score", entry.Score,
		"total_marks", entry.TotalMarks)

	cache.SafeDelete(ctx, s.cache.Stats, userID)
	s.publishSaved(ctx, entry, stats)

	return &models.SaveProgressResponse{
		Message:      "Progress saved successfully",
		Test:         models.NewProgressEntry(entry),
		OverallStats: stats,
	}, nil
}

func (s *progressService) publishSaved(ctx context.Context, entry *models.TestProgress, stats models.OverallStats) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.TypeProgressSaved, events.ProgressSavedEvent{
		UserID:       entry.UserID,
		TestType:     entry.TestType,
		TestID:       entry.TestID,
		Score:        entry.Score,
		TotalMarks:   entry.TotalMarks,
		TotalTests:   stats.TotalTestsTaken,
		AverageScore: stats.AverageScore,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		// The entry is committed; a lost event only delays cache invalidation.
		s.logger.Error("Failed to publish progress event", "error", err, "user_id", entry.UserID)
	}
}

func (s *progressService) Leaderboard(ctx context.Context, currentUserID string) (*models.LeaderboardResponse, error) {
	var ranked []models.LeaderboardEntry
	if err := s.cache.Leaderboard.CacheOrExecute(ctx, cache.LeaderboardTopKey, &ranked, cache.LeaderboardCacheConfig.TTL, func() (interface{}, error) {
		return s.rankUsers(ctx)
	}); err != nil {
		return nil, err
	}

	resp := &models.LeaderboardResponse{Leaderboard: make([]models.LeaderboardEntry, len(ranked))}
	for i, entry := range ranked {
		entry.IsCurrentUser = currentUserID != "" && entry.ID == currentUserID
		resp.Leaderboard[i] = entry
	}
	return resp, nil
}

func (s *progressService) rankUsers(ctx context.Context) ([]models.LeaderboardEntry, error) {
	users, err := s.repo.User().Leaderboard(ctx, nil, repositories.DefaultLeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	ranked := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		ranked = append(ranked, models.LeaderboardEntry{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			OverallStats: u.Stats,
		})
	}
	return ranked, nil
}

func (s *progressService) WarmLeaderboard(ctx context.Context) error {
	if !s.cache.Leaderboard.Available() {
		return nil
	}
	ranked, err := s.rankUsers(ctx)
	if err != nil {
		return err
	}
	return s.cache.Leaderboard.Set(ctx, cache.LeaderboardTopKey, ranked, cache.LeaderboardCacheConfig.TTL)
}

func (s *progressService) HandleProgressSaved(ctx context.Context, event *events.Event) error {
	var data events.ProgressSavedEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	cache.InvalidateLeaderboard(ctx, s.cache, data.UserID)
	s.logger.Debug("Leaderboard cache invalidated", "user_id", data.UserID, "event_id", event.ID)
	return nil
}

func (s *progressService) Export(ctx context.Context, userID string) (*bytes.Buffer, error) {
	resp, err := s.loadProgress(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Progress().ListByUser(ctx, nil, userID, repositories.ProgressFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	buf, err := importer.ProgressWorkbook(entries, resp.OverallStats)
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	return buf, nil
}

func (s *progressService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

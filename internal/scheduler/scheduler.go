package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	DefaultSweepInterval  = 5 * time.Minute
	DefaultWarmupInterval = 4 * time.Minute
	jobTimeout            = 30 * time.Second
)

// SessionSweeper discards sessions idle for longer than maxIdle.
type SessionSweeper interface {
	SweepIdle(ctx context.Context, maxIdle time.Duration) int
}

// LeaderboardWarmer refreshes the cached leaderboard.
type LeaderboardWarmer interface {
	WarmLeaderboard(ctx context.Context) error
}

type Config struct {
	SweepInterval  time.Duration
	IdleTimeout    time.Duration
	WarmupInterval time.Duration
}

// Scheduler runs the service's background jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   SessionSweeper
	warmer    LeaderboardWarmer
	config    Config
	logger    *slog.Logger
}

func New(sweeper SessionSweeper, warmer LeaderboardWarmer, config Config, logger *slog.Logger) *Scheduler {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if config.WarmupInterval <= 0 {
		config.WarmupInterval = DefaultWarmupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		sweeper:   sweeper,
		warmer:    warmer,
		config:    config,
		logger:    logger,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if s.sweeper != nil && s.config.IdleTimeout > 0 {
		if _, err := s.scheduler.Every(s.config.SweepInterval).WaitForSchedule().Do(s.sweepSessions); err != nil {
			return fmt.Errorf("failed to schedule session sweep: %w", err)
		}
	}
	if s.warmer != nil {
		if _, err := s.scheduler.Every(s.config.WarmupInterval).Do(s.warmLeaderboard); err != nil {
			return fmt.Errorf("failed to schedule leaderboard warmup: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started", "jobs", s.scheduler.Len())
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if n := s.sweeper.SweepIdle(ctx, s.config.IdleTimeout); n > 0 {
		s.logger.Info("Discarded idle sessions", "count", n, "idle_timeout", s.config.IdleTimeout)
	}
}

func (s *Scheduler) warmLeaderboard() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.warmer.WarmLeaderboard(ctx); err != nil {
		s.logger.Warn("Leaderboard warmup failed", "error", err)
	}
}

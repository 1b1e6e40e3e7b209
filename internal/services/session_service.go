package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// DefaultTestID is used when a session is started without a test id.
const DefaultTestID = "mocktest1"

const publishTimeout = 5 * time.Second

type SessionServiceConfig struct {
	DurationSeconds int
	Selector        engine.SelectorConfig
	SaveTimeout     time.Duration
	Clock           engine.Clock
}

// sessionService keeps live sessions in memory, keyed by id.
type sessionService struct {
	banks     QuestionBankService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	selector *engine.Selector
	reporter *engine.Reporter
	clock    engine.Clock
	duration int
	newID    func() string

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// liveSession remembers which bank a session draws from so a retry can
// reload the same pool.
type liveSession struct {
	*engine.Session
	bank string
}

func NewSessionService(banks QuestionBankService, progress ProgressService, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, cfg SessionServiceConfig) SessionService {
	if cfg.Clock == nil {
		cfg.Clock = engine.SystemClock()
	}
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = engine.DefaultDurationSeconds
	}

	var sink engine.ProgressSink
	if progress != nil {
		sink = &progressSink{progress: progress}
	}

	return &sessionService{
		banks:     banks,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		selector:  engine.NewSelector(cfg.Selector, nil, logger),
		reporter:  engine.NewReporter(sink, logger, cfg.SaveTimeout),
		clock:     cfg.Clock,
		duration:  cfg.DurationSeconds,
		newID:     uuid.NewString,
		sessions:  map[string]*liveSession{},
	}
}

func (s *sessionService) Start(ctx context.Context, userID string, req *validator.StartSessionRequest) (*SessionResponse, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	testID := req.TestID
	if testID == "" {
		testID = DefaultTestID
	}

	bank, err := s.banks.GetBank(ctx, req.Bank)
	if err != nil {
		return nil, err
	}

	sess := engine.NewSession(engine.SessionConfig{
		ID:              s.newID(),
		UserID:          userID,
		TestType:        bank.TestType,
		TestID:          testID,
		DurationSeconds: s.duration,
		Selector:        s.selector,
		Clock:           s.clock,
		Logger:          s.logger,
		OnSubmit:        s.onSubmit,
	})
	if err := sess.Start(s.pool(ctx, bank.Slug)); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = &liveSession{Session: sess, bank: bank.Slug}
	s.mu.Unlock()

	s.logger.Info("Session created", "session_id", sess.ID(), "user_id", userID, "bank", bank.Slug, "test_id", testID)
	return snapshot(sess), nil
}

// pool loads the bank's questions. A failed load yields an empty pool so the
// session still starts and reports the shortfall.
func (s *sessionService) pool(ctx context.Context, slug string) []models.Question {
	questions, err := s.banks.GetQuestions(ctx, slug)
	if err != nil {
		s.logger.Error("Failed to load question pool", "error", err, "bank", slug)
		return nil
	}
	return questions
}

func (s *sessionService) Get(ctx context.Context, userID, sessionID string) (*SessionResponse, error) {
	sess, err := s.lookup(userID, sessionID, "view")
	if err != nil {
		return nil, err
	}
	return snapshot(sess.Session), nil
}

func (s *sessionService) SetInput(ctx context.Context, userID, sessionID string, input engine.AnswerInput) (*SessionResponse, error) {
	sess, err := s.lookup(userID, sessionID, "answer")
	if err != nil {
		return nil, err
	}
	if err := sess.SetInput(input); err != nil {
		return nil, mapEngineError(err)
	}
	return snapshot(sess.Session), nil
}

func (s *sessionService) SaveAnswer(ctx context.Context, userID, sessionID string) (*SessionResponse, error) {
	sess, err := s.lookup(userID, sessionID, "answer")
	if err != nil {
		return nil, err
	}
	if err := sess.SaveAnswer(); err != nil {
		return nil, mapEngineError(err)
	}
	return snapshot(sess.Session), nil
}

func (s *sessionService) Navigate(ctx context.Context, userID, sessionID string, req *validator.NavigateRequest) (*SessionResponse, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	sess, err := s.lookup(userID, sessionID, "navigate")
	if err != nil {
		return nil, err
	}
	if req.Input != nil {
		if err := sess.SetInput(*req.Input); err != nil {
			return nil, mapEngineError(err)
		}
	}
	if err := sess.Navigate(req.Direction); err != nil {
		return nil, mapEngineError(err)
	}
	return snapshot(sess.Session), nil
}

func (s *sessionService) Submit(ctx context.Context, userID, sessionID string, confirm bool) (*SubmitResponse, error) {
	sess, err := s.lookup(userID, sessionID, "submit")
	if err != nil {
		return nil, err
	}
	outcome, err := sess.Submit(engine.TriggerManual, confirm)
	if err != nil {
		if errors.Is(err, engine.ErrNotInProgress) && sess.State() == engine.StateSubmitted {
			return nil, ErrSessionSubmitted
		}
		return nil, mapEngineError(err)
	}
	return &SubmitResponse{
		NeedsConfirmation: outcome.NeedsConfirmation,
		Unanswered:        outcome.Unanswered,
		Session:           snapshot(sess.Session),
	}, nil
}

func (s *sessionService) Retry(ctx context.Context, userID, sessionID string) (*SessionResponse, error) {
	sess, err := s.lookup(userID, sessionID, "retry")
	if err != nil {
		return nil, err
	}
	if err := sess.Retry(); err != nil {
		if errors.Is(err, engine.ErrInvalidTransition) {
			return nil, ErrSessionNotRetried
		}
		return nil, mapEngineError(err)
	}

	if err := sess.Start(s.pool(ctx, sess.bank)); err != nil {
		return nil, fmt.Errorf("failed to restart session: %w", err)
	}
	s.logger.Info("Session restarted", "session_id", sessionID, "user_id", userID)
	return snapshot(sess.Session), nil
}

func (s *sessionService) Leave(ctx context.Context, userID, sessionID string) error {
	sess, err := s.lookup(userID, sessionID, "leave")
	if err != nil {
		return err
	}
	sess.Close()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("Session left", "session_id", sessionID, "user_id", userID, "state", sess.State())
	return nil
}

func (s *sessionService) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.clock.Now().Add(-maxIdle)

	s.mu.Lock()
	var idle []*liveSession
	for id, sess := range s.sessions {
		if sess.LastActivity().Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.Close()
	}
	return len(idle)
}

func (s *sessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*liveSession{}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.reporter.Wait()
}

func (s *sessionService) lookup(userID, sessionID, action string) (*liveSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.UserID() != userID {
		return nil, NewPermissionError(userID, sessionID, "session", action, "not the session owner")
	}
	return sess, nil
}

// onSubmit runs once per graded session, on whichever goroutine submitted it.
func (s *sessionService) onSubmit(sess *engine.Session, result *engine.Result) {
	s.reporter.Report(sess, result)

	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.TypeTestSubmitted, events.TestSubmittedEvent{
		SessionID:     sess.ID(),
		UserID:        sess.UserID(),
		TestType:      sess.TestType(),
		TestID:        sess.TestID(),
		Trigger:       string(result.Trigger),
		TotalMarks:    result.TotalMarks,
		TotalMaxMarks: result.TotalMaxMarks,
		Accuracy:      result.Accuracy,
	})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = s.publisher.Publish(ctx, event)
		cancel()
	}
	if err != nil {
		s.logger.Error("Failed to publish submission event", "error", err, "session_id", sess.ID())
	}
}

func snapshot(sess *engine.Session) *SessionResponse {
	snap := sess.Snapshot()
	return &snap
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrNotInProgress):
		return ErrSessionNotActive
	case errors.Is(err, engine.ErrUnknownOption):
		return ErrInvalidAnswer
	case errors.Is(err, engine.ErrInvalidDirection):
		return ValidationErrors{{Field: "direction", Message: "direction must be one of [next prev]", Rule: "oneof"}}
	default:
		return err
	}
}

// progressSink hands graded results to the progress service.
type progressSink struct {
	progress ProgressService
}

func (p *progressSink) SaveProgress(ctx context.Context, userID string, payload engine.ProgressPayload) error {
	score, total, accuracy := payload.Score, payload.TotalMarks, payload.Accuracy
	correct, attempted, spent := payload.CorrectAnswers, payload.Attempted, payload.TimeSpent

	_, err := p.progress.SaveProgress(ctx, userID, &validator.SaveProgressRequest{
		TestType:   payload.TestType,
		TestID:     payload.TestID,
		Score:      &score,
		TotalMarks: &total,
		Accuracy:   &accuracy,
		Details: &validator.ProgressDetailsRequest{
			CorrectAnswers: &correct,
			Attempted:      &attempted,
			TimeSpent:      &spent,
		},
	})
	return err
}

package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

type SubmitTrigger string

const (
	TriggerManual  SubmitTrigger = "manual"
	TriggerTimeout SubmitTrigger = "timeout"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrUnknownOption     = errors.New("value is not an option of the current question")
	ErrInvalidDirection  = errors.New("invalid navigation direction")
)

// SessionConfig wires a session to its collaborators.
type SessionConfig struct {
	ID       string
	UserID   string
	TestType string
	TestID   string

	DurationSeconds int
	Selector        *Selector
	Clock           Clock
	Logger          *slog.Logger

	// OnSubmit runs after the session is finalized, outside the session lock.
	OnSubmit func(*Session, *Result)
	// OnTick receives every timer tick, inside the session lock.
	OnTick func(TimerState)
}

// SubmitOutcome tells the caller whether a manual submission still needs
// confirmation.
type SubmitOutcome struct {
	NeedsConfirmation bool    `json:"needsConfirmation"`
	Unanswered        int     `json:"unanswered"`
	Result            *Result `json:"result,omitempty"`
}

type PersistState string

const (
	PersistNone    PersistState = ""
	PersistPending PersistState = "pending"
	PersistSaved   PersistState = "saved"
	PersistFailed  PersistState = "failed"
)

// PersistStatus tracks the best-effort save of a result.
type PersistStatus struct {
	State   PersistState `json:"state,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Session is one user's run through a test. Every command and every timer
// callback takes the session lock, so at most one mutation is in flight.
type Session struct {
	id       string
	userID   string
	testType string
	testID   string

	duration int
	selector *Selector
	clock    Clock
	logger   *slog.Logger
	onSubmit func(*Session, *Result)
	onTick   func(TimerState)

	mu            sync.Mutex
	state         State
	selection     Selection
	questions     []models.Question
	index         int
	answers       map[int]Answer
	inputs        map[int]AnswerInput
	ledger        []int
	questionStart time.Time
	timer         *Timer
	result        *Result
	persist       PersistStatus
	startedAt     time.Time
	submittedAt   time.Time
	lastActivity  time.Time
}

// NewSession creates a session in the NotStarted state.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Selector == nil {
		cfg.Selector = NewSelector(DefaultSelectorConfig(), nil, cfg.Logger)
	}
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = DefaultDurationSeconds
	}

	return &Session{
		id:           cfg.ID,
		userID:       cfg.UserID,
		testType:     cfg.TestType,
		testID:       cfg.TestID,
		duration:     cfg.DurationSeconds,
		selector:     cfg.Selector,
		clock:        cfg.Clock,
		logger:       cfg.Logger.With("session_id", cfg.ID),
		onSubmit:     cfg.OnSubmit,
		onTick:       cfg.OnTick,
		state:        StateNotStarted,
		answers:      map[int]Answer{},
		inputs:       map[int]AnswerInput{},
		lastActivity: cfg.Clock.Now(),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) TestType() string { return s.testType }
func (s *Session) TestID() string   { return s.testID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity is the time of the last accepted command.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Start selects the questions and starts the clock. Starting a session that
// is already in progress is a no-op.
func (s *Session) Start(pool []models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInProgress:
		return nil
	case StateSubmitted:
		return ErrInvalidTransition
	}

	s.selection = s.selector.Select(pool)
	s.questions = s.selection.Questions
	s.answers = map[int]Answer{}
	s.inputs = map[int]AnswerInput{}
	s.ledger = make([]int, len(s.questions))
	s.index = 0
	s.result = nil
	s.persist = PersistStatus{}

	now := s.clock.Now()
	s.questionStart = now
	s.startedAt = now
	s.lastActivity = now
	s.submittedAt = time.Time{}

	s.timer = NewTimer(s.clock, s.duration, s.handleTick, s.handleExpire)
	s.state = StateInProgress
	s.timer.Start()

	s.logger.Info("Test session started",
		"questions", len(s.questions),
		"total_marks", s.selection.TotalMarks,
		"exact", s.selection.Exact,
		"shortfall", s.selection.Shortfall)

	return nil
}

// SetInput records the widget state of the current question.
func (s *Session) SetInput(input AnswerInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	q := s.currentLocked()
	if q == nil {
		return nil
	}
	if len(q.Options) > 0 {
		for _, v := range input.Checked {
			if !containsString(q.Options, v) {
				return ErrUnknownOption
			}
		}
	}

	s.inputs[s.index] = AnswerInput{
		Checked: append([]string(nil), input.Checked...),
		Text:    input.Text,
	}
	s.lastActivity = s.clock.Now()
	return nil
}

// SaveAnswer writes the current widget state into the answer record.
func (s *Session) SaveAnswer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	s.saveAnswerLocked()
	s.lastActivity = s.clock.Now()
	return nil
}

// Navigate commits time on the current question, saves its answer and moves
// one question forward or back. The index never wraps.
func (s *Session) Navigate(dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir != DirectionNext && dir != DirectionPrev {
		return ErrInvalidDirection
	}
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if len(s.questions) == 0 {
		return nil
	}

	s.commitTimeLocked()
	s.saveAnswerLocked()

	switch dir {
	case DirectionNext:
		if s.index < len(s.questions)-1 {
			s.index++
		}
	case DirectionPrev:
		if s.index > 0 {
			s.index--
		}
	}
	s.lastActivity = s.clock.Now()
	return nil
}

// Submit ends the test. A manual submission without confirmation only
// reports the unanswered count and leaves the session running.
func (s *Session) Submit(trigger SubmitTrigger, confirmed bool) (SubmitOutcome, error) {
	s.mu.Lock()

	if s.state != StateInProgress {
		s.mu.Unlock()
		return SubmitOutcome{}, ErrNotInProgress
	}

	s.saveAnswerLocked()
	s.commitTimeLocked()
	s.lastActivity = s.clock.Now()

	if trigger == TriggerManual && !confirmed {
		outcome := SubmitOutcome{NeedsConfirmation: true, Unanswered: s.unansweredLocked()}
		s.mu.Unlock()
		return outcome, nil
	}

	result := s.finalizeLocked(trigger)
	s.mu.Unlock()

	s.notifySubmitted(result)
	return SubmitOutcome{Result: result}, nil
}

// Retry discards a submitted run so the session can be started again.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitted {
		return ErrInvalidTransition
	}

	s.state = StateNotStarted
	s.selection = Selection{}
	s.questions = nil
	s.answers = map[int]Answer{}
	s.inputs = map[int]AnswerInput{}
	s.ledger = nil
	s.index = 0
	s.timer = nil
	s.result = nil
	s.persist = PersistStatus{}
	s.questionStart = time.Time{}
	s.lastActivity = s.clock.Now()
	return nil
}

// Close stops the timer when the user leaves the test.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
}

// Result returns the graded result once submitted.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetPersistStatus records the outcome of saving the result.
func (s *Session) SetPersistStatus(status PersistStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = status
}

func (s *Session) handleTick(state TimerState) {
	if s.onTick == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress {
		s.onTick(state)
	}
}

func (s *Session) handleExpire() {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return
	}

	s.saveAnswerLocked()
	s.commitTimeLocked()
	result := s.finalizeLocked(TriggerTimeout)
	s.mu.Unlock()

	s.logger.Info("Test session auto-submitted on timeout")
	s.notifySubmitted(result)
}

func (s *Session) finalizeLocked(trigger SubmitTrigger) *Result {
	if s.timer != nil {
		s.timer.Stop()
	}

	result := Score(s.questions, s.answers, s.ledger)
	result.Trigger = trigger
	result.SubmittedAt = s.clock.Now().UTC()

	s.result = result
	s.state = StateSubmitted
	s.submittedAt = result.SubmittedAt

	s.logger.Info("Test session submitted",
		"trigger", trigger,
		"total_marks", result.TotalMarks,
		"max_marks", result.TotalMaxMarks,
		"correct", result.CorrectCount,
		"attempted", result.AttemptedCount)

	return result
}

func (s *Session) notifySubmitted(result *Result) {
	if s.onSubmit != nil {
		s.onSubmit(s, result)
	}
}

func (s *Session) currentLocked() *models.Question {
	if s.index < 0 || s.index >= len(s.questions) {
		return nil
	}
	return &s.questions[s.index]
}

// currentInputLocked is the widget state: an explicit input if one was set,
// otherwise the selections restored from the saved answer.
func (s *Session) currentInputLocked(q *models.Question) AnswerInput {
	if input, ok := s.inputs[s.index]; ok {
		return input
	}
	if saved, ok := s.answers[s.index]; ok {
		return inputFromAnswer(q.Kind(), saved)
	}
	return AnswerInput{}
}

func (s *Session) saveAnswerLocked() {
	q := s.currentLocked()
	if q == nil {
		return
	}

	answer := answerFromInput(q.Kind(), s.currentInputLocked(q))
	if existing, ok := s.answers[s.index]; ok && sameAnswer(existing, answer) {
		return
	}
	s.answers[s.index] = answer
}

func (s *Session) commitTimeLocked() {
	now := s.clock.Now()
	if !s.questionStart.IsZero() && s.index < len(s.ledger) {
		elapsed := int(now.Sub(s.questionStart) / time.Second)
		if elapsed > 0 {
			s.ledger[s.index] += elapsed
		}
	}
	s.questionStart = now
}

func (s *Session) unansweredLocked() int {
	count := 0
	for i := range s.questions {
		if a, ok := s.answers[i]; !ok || a.IsNull() {
			count++
		}
	}
	return count
}

func containsString(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

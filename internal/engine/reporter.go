package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNoCredential is reported when a result has no user to be attributed to.
var ErrNoCredential = errors.New("no authentication credential for result")

// ProgressPayload is the body sent to the progress store for a finished test.
type ProgressPayload struct {
	TestType       string  `json:"testType"`
	TestID         string  `json:"testId"`
	Score          float64 `json:"score"`
	TotalMarks     float64 `json:"totalMarks"`
	Accuracy       float64 `json:"accuracy"`
	CorrectAnswers int     `json:"correctAnswers"`
	Attempted      int     `json:"attempted"`
	TimeSpent      int     `json:"timeSpent"`
}

// ProgressSink persists a scored test for a user.
type ProgressSink interface {
	SaveProgress(ctx context.Context, userID string, payload ProgressPayload) error
}

// BuildPayload maps a result onto the progress payload.
func BuildPayload(testType, testID string, r *Result) ProgressPayload {
	return ProgressPayload{
		TestType:       testType,
		TestID:         testID,
		Score:          r.TotalMarks,
		TotalMarks:     float64(r.TotalMaxMarks),
		Accuracy:       round2(r.Accuracy),
		CorrectAnswers: r.CorrectCount,
		Attempted:      r.AttemptedCount,
		TimeSpent:      r.TimeSpent,
	}
}

// Reporter saves results in the background. A failed save is recorded on the
// session as a notice and never retried.
type Reporter struct {
	sink    ProgressSink
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewReporter(sink ProgressSink, logger *slog.Logger, timeout time.Duration) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reporter{
		sink:    sink,
		logger:  logger,
		timeout: timeout,
	}
}

// Report starts persisting the result and returns immediately. It has the
// signature of SessionConfig.OnSubmit.
func (r *Reporter) Report(s *Session, result *Result) {
	if result == nil {
		return
	}

	if s.UserID() == "" {
		s.SetPersistStatus(PersistStatus{State: PersistFailed, Message: "Error saving progress: " + ErrNoCredential.Error()})
		return
	}
	if r.sink == nil {
		return
	}

	payload := BuildPayload(s.TestType(), s.TestID(), result)
	s.SetPersistStatus(PersistStatus{State: PersistPending})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.sink.SaveProgress(ctx, s.UserID(), payload); err != nil {
			r.logger.Error("Failed to save progress",
				"error", err,
				"session_id", s.ID(),
				"user_id", s.UserID(),
				"test_id", payload.TestID)
			s.SetPersistStatus(PersistStatus{State: PersistFailed, Message: "Failed to save progress. Please try again."})
			return
		}

		s.SetPersistStatus(PersistStatus{State: PersistSaved})
	}()
}

// Wait blocks until in-flight saves have finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// manualClock never ticks on its own, so timers stay at full duration.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

type idleTicker struct{ ch chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.ch }
func (t idleTicker) Stop()               {}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) NewTicker(time.Duration) engine.Ticker {
	return idleTicker{ch: make(chan time.Time)}
}

func newSessionService(t *testing.T, env *testEnv) (SessionService, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(env.bankService(), env.progressService(), env.publisher, env.logger, env.validator, SessionServiceConfig{
		DurationSeconds: 600,
		Selector:        engine.SelectorConfig{TotalQuestions: 3, TotalMarks: 3, MaxAttempts: 50},
		SaveTimeout:     time.Second,
		Clock:           clock,
	})
	t.Cleanup(svc.Close)
	return svc, clock
}

func TestSessionService_Start(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "u-1", "Asha")
	env.importBank(t, "jee-physics", 5, 1)
	svc, _ := newSessionService(t, env)

	snap, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, engine.StateInProgress, snap.State)
	assert.Equal(t, "JEE Physics", snap.TestType)
	assert.Equal(t, DefaultTestID, snap.TestID)
	assert.Equal(t, 3, snap.TotalQuestions)
	assert.True(t, snap.Selection.Exact)
	assert.Equal(t, "00:10:00", snap.Timer.Display)
	require.NotNil(t, snap.Current)
	assert.Equal(t, 1, snap.Current.Number)

	short, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics", TestID: "mocktest7"})
	require.NoError(t, err)
	assert.Equal(t, "mocktest7", short.TestID)
	assert.NotEqual(t, snap.ID, short.ID)
}

func TestSessionService_Start_Rejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc, _ := newSessionService(t, env)

	_, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "missing"})
	assert.ErrorIs(t, err, ErrBankNotFound)

	_, err = svc.Start(ctx, "u-1", &validator.StartSessionRequest{})
	var verrs ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "missing", TestID: "mocktest11"})
	assert.True(t, errors.As(err, &verrs))
}

func TestSessionService_Shortfall(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.importBank(t, "tiny", 2, 1)
	svc, _ := newSessionService(t, env)

	snap, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "tiny"})
	require.NoError(t, err)
	assert.True(t, snap.Selection.Shortfall)
	assert.Equal(t, 2, snap.TotalQuestions)
}

func TestSessionService_Ownership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.importBank(t, "jee-physics", 5, 1)
	svc, _ := newSessionService(t, env)

	snap, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u-2", snap.ID)
	var perr *PermissionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "view", perr.Action)

	_, err = svc.Get(ctx, "u-1", "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_AnswerAndSubmit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "u-1", "Asha")
	env.importBank(t, "jee-physics", 5, 1)
	svc, _ := newSessionService(t, env)

	snap, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)
	id := snap.ID

	_, err = svc.SetInput(ctx, "u-1", id, engine.AnswerInput{Checked: []string{"Z"}})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = svc.Navigate(ctx, "u-1", id, &validator.NavigateRequest{Direction: "sideways"})
	var verrs ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	snap, err = svc.Navigate(ctx, "u-1", id, &validator.NavigateRequest{
		Direction: engine.DirectionNext,
		Input:     &engine.AnswerInput{Checked: []string{"A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, 1, snap.Answered)

	_, err = svc.SetInput(ctx, "u-1", id, engine.AnswerInput{Checked: []string{"B"}})
	require.NoError(t, err)
	snap, err = svc.SaveAnswer(ctx, "u-1", id)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Answered)

	pending, err := svc.Submit(ctx, "u-1", id, false)
	require.NoError(t, err)
	assert.True(t, pending.NeedsConfirmation)
	assert.Equal(t, 1, pending.Unanswered)
	assert.Equal(t, engine.StateInProgress, pending.Session.State)

	done, err := svc.Submit(ctx, "u-1", id, true)
	require.NoError(t, err)
	assert.False(t, done.NeedsConfirmation)
	assert.Equal(t, engine.StateSubmitted, done.Session.State)
	require.NotNil(t, done.Session.Result)
	assert.Equal(t, engine.TriggerManual, done.Session.Result.Trigger)
	assert.Equal(t, 1, done.Session.Result.CorrectCount)

	require.Eventually(t, func() bool {
		n, err := env.repo.Progress().CountByUser(ctx, nil, "u-1")
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		s, err := svc.Get(ctx, "u-1", id)
		return err == nil && s.Persist.State == engine.PersistSaved
	}, 2*time.Second, 10*time.Millisecond)

	var submitted *events.Event
	for _, e := range env.publisher.GetPublishedEvents() {
		if e.Type == events.TypeTestSubmitted {
			submitted = e
		}
	}
	require.NotNil(t, submitted)
	var data events.TestSubmittedEvent
	require.NoError(t, submitted.Decode(&data))
	assert.Equal(t, id, data.SessionID)
	assert.Equal(t, "manual", data.Trigger)

	_, err = svc.Submit(ctx, "u-1", id, true)
	assert.ErrorIs(t, err, ErrSessionSubmitted)
	_, err = svc.SetInput(ctx, "u-1", id, engine.AnswerInput{Checked: []string{"A"}})
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSessionService_Retry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.importBank(t, "jee-physics", 5, 1)
	svc, _ := newSessionService(t, env)

	snap, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)

	_, err = svc.Retry(ctx, "u-1", snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotRetried)

	_, err = svc.Submit(ctx, "u-1", snap.ID, true)
	require.NoError(t, err)

	again, err := svc.Retry(ctx, "u-1", snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, again.ID)
	assert.Equal(t, engine.StateInProgress, again.State)
	assert.Equal(t, 3, again.TotalQuestions)
	assert.Zero(t, again.Answered)
	assert.Nil(t, again.Result)
}

func TestSessionService_LeaveAndSweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.importBank(t, "jee-physics", 5, 1)
	svc, clock := newSessionService(t, env)

	left, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, "u-1", left.ID))
	_, err = svc.Get(ctx, "u-1", left.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	stale, err := svc.Start(ctx, "u-1", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	fresh, err := svc.Start(ctx, "u-2", &validator.StartSessionRequest{Bank: "jee-physics"})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.SweepIdle(ctx, 10*time.Minute))
	_, err = svc.Get(ctx, "u-1", stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(ctx, "u-2", fresh.ID)
	assert.NoError(t, err)
}

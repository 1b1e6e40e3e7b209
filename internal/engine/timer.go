package engine

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultDurationSeconds = 3000
	WarningThreshold       = 1200
	BlinkingThreshold      = 300

	tickInterval = time.Second
)

// Clock abstracts time for the session and its timer.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// TimerState is what the countdown display shows after a tick.
type TimerState struct {
	Remaining int    `json:"remaining"`
	Display   string `json:"display"`
	Warning   bool   `json:"warning"`
	Blinking  bool   `json:"blinking"`
	Running   bool   `json:"running"`
}

func newTimerState(remaining int, running bool) TimerState {
	return TimerState{
		Remaining: remaining,
		Display:   FormatClock(remaining),
		Warning:   remaining <= WarningThreshold,
		Blinking:  remaining <= BlinkingThreshold,
		Running:   running,
	}
}

// Timer is a one-shot countdown with one-second resolution. It cannot be
// paused; a stopped timer stays stopped.
type Timer struct {
	clock    Clock
	onTick   func(TimerState)
	onExpire func()

	mu        sync.Mutex
	remaining int
	started   bool
	running   bool
	expired   bool
	stop      chan struct{}
}

// NewTimer creates a stopped countdown of durationSeconds.
func NewTimer(clock Clock, durationSeconds int, onTick func(TimerState), onExpire func()) *Timer {
	if clock == nil {
		clock = SystemClock()
	}
	if durationSeconds <= 0 {
		durationSeconds = DefaultDurationSeconds
	}
	return &Timer{
		clock:     clock,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: durationSeconds,
		stop:      make(chan struct{}),
	}
}

// Start begins ticking. Calling it again has no effect.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return
	}
	t.started = true
	t.running = true

	ticker := t.clock.NewTicker(tickInterval)
	go t.run(ticker, t.stop)
}

// Stop halts the countdown without firing the expiry callback. It does not
// wait for an in-flight tick callback to return.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return newTimerState(t.remaining, t.running)
}

func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

func (t *Timer) run(ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			state, expired, ok := t.advance()
			if !ok {
				return
			}
			if t.onTick != nil {
				t.onTick(state)
			}
			if expired {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}

// advance moves the countdown one second. The transition to zero happens
// once, so expiry is reported exactly once.
func (t *Timer) advance() (TimerState, bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return TimerState{}, false, false
	}

	t.remaining--
	if t.remaining <= 0 {
		t.remaining = 0
		t.running = false
		t.expired = true
		close(t.stop)
		return newTimerState(0, false), true, true
	}

	return newTimerState(t.remaining, true), false, true
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

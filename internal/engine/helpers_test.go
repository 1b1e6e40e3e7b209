package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

// fakeClock hands out tickers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	return c.ticker
}

// Tick delivers up to n ticks and returns how many were received.
func (c *fakeClock) Tick(n int) int {
	c.mu.Lock()
	ticker := c.ticker
	c.mu.Unlock()
	if ticker == nil {
		return 0
	}

	delivered := 0
	for i := 0; i < n; i++ {
		select {
		case ticker.ch <- c.Now():
			delivered++
		case <-time.After(200 * time.Millisecond):
			return delivered
		}
	}
	return delivered
}

func mcq(text string, marks int, answer string) models.Question {
	return models.Question{
		Text:    text,
		Type:    models.QuestionTypeMCQ,
		Options: []string{"A", "B", "C", "D"},
		Answer:  models.SingleAnswer(answer),
		Marks:   marks,
	}
}

func msq(text string, marks int, answer ...string) models.Question {
	return models.Question{
		Text:    text,
		Type:    models.QuestionTypeMCQ,
		Options: []string{"A", "B", "C", "D"},
		Answer:  models.MultiAnswer(answer...),
		Marks:   marks,
	}
}

func numerical(text string, marks int, answer float64) models.Question {
	return models.Question{
		Text:   text,
		Type:   models.QuestionTypeNumerical,
		Answer: models.NumericAnswer(answer),
		Marks:  marks,
	}
}

// poolOf builds count single-choice questions worth marks each.
func poolOf(count, marks int) []models.Question {
	out := make([]models.Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, mcq(fmt.Sprintf("q-%d-%d", marks, i), marks, "A"))
	}
	return out
}

func seededSelector(cfg SelectorConfig, seed int64) *Selector {
	return NewSelector(cfg, rand.New(rand.NewSource(seed)), discardLogger())
}

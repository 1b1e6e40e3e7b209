// Package engine runs a single mock test: question selection, the session
// state machine, the countdown timer, scoring and result reporting.
package engine

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

const (
	DefaultTotalQuestions = 25
	DefaultTotalMarks     = 40
	DefaultMaxAttempts    = 500

	// maxRepairDeviation bounds how far off a full-length combination may be
	// before a single-swap repair is tried.
	maxRepairDeviation = 2
)

// SelectorConfig describes the shape of a test paper.
type SelectorConfig struct {
	TotalQuestions int
	TotalMarks     int
	MaxAttempts    int
}

func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		TotalQuestions: DefaultTotalQuestions,
		TotalMarks:     DefaultTotalMarks,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// Selection is the outcome of one selector run.
type Selection struct {
	Questions  []models.Question
	TotalMarks int
	Attempts   int

	// Exact is set when both the count and the marks target were hit.
	Exact bool
	// Repaired is set when the exact result came from a single swap.
	Repaired bool
	// Shortfall is set when the pool had fewer eligible questions than required.
	Shortfall bool
}

// Selector picks a fixed-size, fixed-marks subset of a question pool with a
// bounded randomized greedy search.
type Selector struct {
	config SelectorConfig
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. A nil rng is seeded from the clock.
func NewSelector(config SelectorConfig, rng *rand.Rand, logger *slog.Logger) *Selector {
	defaults := DefaultSelectorConfig()
	if config.TotalQuestions <= 0 {
		config.TotalQuestions = defaults.TotalQuestions
	}
	if config.TotalMarks <= 0 {
		config.TotalMarks = defaults.TotalMarks
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Selector{
		config: config,
		rng:    rng,
		logger: logger,
	}
}

func (s *Selector) Config() SelectorConfig {
	return s.config
}

// Select never fails: when no exact combination exists it returns the best
// combination it saw, which may be short or off target.
func (s *Selector) Select(pool []models.Question) Selection {
	eligible := make([]models.Question, 0, len(pool))
	for _, q := range pool {
		if q.Marks <= s.config.TotalMarks {
			eligible = append(eligible, q)
		}
	}

	shortfall := len(eligible) < s.config.TotalQuestions
	if len(eligible) == 0 {
		s.logger.Warn("Question pool has no eligible questions",
			"pool_size", len(pool),
			"max_marks", s.config.TotalMarks)
		return Selection{Shortfall: true}
	}

	var (
		best      []int
		bestDiff  = -1
		bestCount int
	)

	order := make([]int, len(eligible))
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		for i := range order {
			order[i] = i
		}
		s.shuffle(order)

		combo, total := s.greedy(eligible, order)
		if len(combo) == s.config.TotalQuestions && total == s.config.TotalMarks {
			return Selection{
				Questions:  pick(eligible, combo),
				TotalMarks: total,
				Attempts:   attempt,
				Exact:      true,
			}
		}

		diff := absInt(s.config.TotalMarks - total)
		if bestDiff < 0 || diff < bestDiff || (diff == bestDiff && len(combo) > bestCount) {
			best = combo
			bestDiff = diff
			bestCount = len(combo)
		}
	}

	if len(best) == s.config.TotalQuestions && bestDiff <= maxRepairDeviation {
		if repaired, ok := s.repair(eligible, best); ok {
			return Selection{
				Questions:  pick(eligible, repaired),
				TotalMarks: s.config.TotalMarks,
				Attempts:   s.config.MaxAttempts,
				Exact:      true,
				Repaired:   true,
			}
		}
	}

	selected := pick(eligible, best)
	total := SumMarks(selected)
	s.logger.Warn("Using approximate question combination",
		"questions", len(selected),
		"total_marks", total,
		"target_questions", s.config.TotalQuestions,
		"target_marks", s.config.TotalMarks,
		"shortfall", shortfall)

	return Selection{
		Questions:  selected,
		TotalMarks: total,
		Attempts:   s.config.MaxAttempts,
		Shortfall:  shortfall,
	}
}

func (s *Selector) shuffle(order []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
}

// greedy walks the shuffled order, taking every question that still fits.
func (s *Selector) greedy(eligible []models.Question, order []int) ([]int, int) {
	combo := make([]int, 0, s.config.TotalQuestions)
	total := 0
	for _, idx := range order {
		if len(combo) >= s.config.TotalQuestions {
			break
		}
		marks := eligible[idx].Marks
		if total+marks <= s.config.TotalMarks {
			combo = append(combo, idx)
			total += marks
			if len(combo) == s.config.TotalQuestions && total == s.config.TotalMarks {
				break
			}
		}
	}
	return combo, total
}

// repair tries to hit the marks target by replacing one chosen question with
// an unused one.
func (s *Selector) repair(eligible []models.Question, combo []int) ([]int, bool) {
	used := make(map[int]bool, len(combo))
	total := 0
	for _, idx := range combo {
		used[idx] = true
		total += eligible[idx].Marks
	}

	for pos, idx := range combo {
		for candidate := range eligible {
			if used[candidate] {
				continue
			}
			if total-eligible[idx].Marks+eligible[candidate].Marks == s.config.TotalMarks {
				repaired := append([]int(nil), combo...)
				repaired[pos] = candidate
				return repaired, true
			}
		}
	}
	return nil, false
}

// SumMarks adds up the marks of a question set.
func SumMarks(questions []models.Question) int {
	total := 0
	for i := range questions {
		total += questions[i].Marks
	}
	return total
}

func pick(eligible []models.Question, idx []int) []models.Question {
	out := make([]models.Question, len(idx))
	for i, j := range idx {
		out[i] = eligible[j]
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package engine

import (
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// QuestionView is a question as shown during the test, without its answer key.
type QuestionView struct {
	Number  int                 `json:"number"`
	Text    string              `json:"question"`
	Type    models.QuestionType `json:"type"`
	Label   string              `json:"label"`
	Options []string            `json:"options,omitempty"`
	Marks   int                 `json:"marks"`
	Penalty float64             `json:"penalty"`
	Image   string              `json:"image,omitempty"`
	Input   AnswerInput         `json:"input"`
}

// SelectionInfo describes how well the paper matched its target.
type SelectionInfo struct {
	TotalMarks int  `json:"totalMarks"`
	Exact      bool `json:"exact"`
	Shortfall  bool `json:"shortfall"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	TestType       string         `json:"testType"`
	TestID         string         `json:"testId"`
	State          State          `json:"state"`
	CurrentIndex   int            `json:"currentIndex"`
	TotalQuestions int            `json:"totalQuestions"`
	Answered       int            `json:"answered"`
	Current        *QuestionView  `json:"current,omitempty"`
	Answers        map[int]Answer `json:"answers"`
	TimeLedger     []int          `json:"timeLedger"`
	Timer          TimerState     `json:"timer"`
	Selection      SelectionInfo  `json:"selection"`
	Result         *Result        `json:"result,omitempty"`
	Breakdown      *Breakdown     `json:"breakdown,omitempty"`
	Persist        PersistStatus  `json:"persist"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	SubmittedAt    *time.Time     `json:"submittedAt,omitempty"`
}

// Snapshot copies the session state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		UserID:         s.userID,
		TestType:       s.testType,
		TestID:         s.testID,
		State:          s.state,
		CurrentIndex:   s.index,
		TotalQuestions: len(s.questions),
		Answers:        make(map[int]Answer, len(s.answers)),
		TimeLedger:     append([]int{}, s.ledger...),
		Selection: SelectionInfo{
			TotalMarks: s.selection.TotalMarks,
			Exact:      s.selection.Exact,
			Shortfall:  s.selection.Shortfall,
		},
		Result:  s.result,
		Persist: s.persist,
	}

	for i, a := range s.answers {
		snap.Answers[i] = a
		// Null saves are recorded but do not count as answered.
		if !a.IsNull() {
			snap.Answered++
		}
	}

	if s.timer != nil {
		snap.Timer = s.timer.State()
	} else {
		snap.Timer = newTimerState(s.duration, false)
	}

	if s.state == StateInProgress {
		if q := s.currentLocked(); q != nil {
			snap.Current = &QuestionView{
				Number:  s.index + 1,
				Text:    q.Text,
				Type:    q.Kind(),
				Label:   TypeLabel(q.Kind()),
				Options: append([]string(nil), q.Options...),
				Marks:   q.Marks,
				Penalty: round2(q.Penalty()),
				Image:   q.Image,
				Input:   s.currentInputLocked(q),
			}
		}
	}

	if s.result != nil {
		b := Render(s.result)
		snap.Breakdown = &b
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
	}
	if !s.submittedAt.IsZero() {
		submitted := s.submittedAt
		snap.SubmittedAt = &submitted
	}

	return snap
}

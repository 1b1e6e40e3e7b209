package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type ResultStatus string

const (
	StatusCorrect     ResultStatus = "correct"
	StatusIncorrect   ResultStatus = "incorrect"
	StatusUnattempted ResultStatus = "unattempted"
)

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	Number        int                 `json:"number"`
	Type          models.QuestionType `json:"type"`
	IsMultiple    bool                `json:"isMultiple"`
	Attempted     bool                `json:"attempted"`
	Correct       bool                `json:"correct"`
	UserAnswer    *Answer             `json:"userAnswer"`
	CorrectAnswer models.AnswerKey    `json:"correctAnswer"`
	TimeSpent     int                 `json:"timeSpent"`
	Marks         int                 `json:"marks"`
	MarksObtained float64             `json:"marksObtained"`
	Explanation   string              `json:"explanation,omitempty"`
}

func (r *QuestionResult) Status() ResultStatus {
	switch {
	case !r.Attempted:
		return StatusUnattempted
	case r.Correct:
		return StatusCorrect
	default:
		return StatusIncorrect
	}
}

// Result is the read-only snapshot produced at submission.
type Result struct {
	Questions      []QuestionResult `json:"questions"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectCount   int              `json:"correctCount"`
	AttemptedCount int              `json:"attemptedCount"`
	TotalMarks     float64          `json:"totalMarks"`
	TotalMaxMarks  int              `json:"totalMaxMarks"`
	Accuracy       float64          `json:"accuracy"`
	TimeSpent      int              `json:"timeSpent"`
	Trigger        SubmitTrigger    `json:"trigger"`
	SubmittedAt    time.Time        `json:"submittedAt"`
}

// Summary is the headline block of a rendered result.
type Summary struct {
	TotalQuestions int    `json:"totalQuestions"`
	Correct        int    `json:"correct"`
	Attempted      int    `json:"attempted"`
	Accuracy       string `json:"accuracy"`
	ObtainedMarks  string `json:"obtainedMarks"`
	MaximumMarks   int    `json:"maximumMarks"`
	TimeSpent      string `json:"timeSpent"`
}

// BreakdownItem is one row of the per-question review.
type BreakdownItem struct {
	Number        int          `json:"number"`
	TypeLabel     string       `json:"typeLabel"`
	Status        ResultStatus `json:"status"`
	TimeSpent     string       `json:"timeSpent"`
	MaxMarks      int          `json:"maxMarks"`
	MarksObtained string       `json:"marksObtained"`
	YourAnswer    string       `json:"yourAnswer,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
}

// Breakdown is the rendered form of a Result.
type Breakdown struct {
	Summary Summary         `json:"summary"`
	Items   []BreakdownItem `json:"items"`
}

// Render formats a result for display. Answers are only shown side by side
// for attempted questions that were answered wrongly.
func Render(r *Result) Breakdown {
	b := Breakdown{
		Summary: Summary{
			TotalQuestions: r.TotalQuestions,
			Correct:        r.CorrectCount,
			Attempted:      r.AttemptedCount,
			Accuracy:       fmt.Sprintf("%.2f", r.Accuracy),
			ObtainedMarks:  fmt.Sprintf("%.2f", r.TotalMarks),
			MaximumMarks:   r.TotalMaxMarks,
			TimeSpent:      FormatDuration(r.TimeSpent),
		},
		Items: make([]BreakdownItem, 0, len(r.Questions)),
	}

	for i := range r.Questions {
		q := &r.Questions[i]
		item := BreakdownItem{
			Number:        q.Number,
			TypeLabel:     TypeLabel(q.Type),
			Status:        q.Status(),
			TimeSpent:     FormatDuration(q.TimeSpent),
			MaxMarks:      q.Marks,
			MarksObtained: FormatMarks(q.MarksObtained, q.Attempted),
		}
		if q.Attempted && !q.Correct {
			item.YourAnswer = q.UserAnswer.String()
			item.CorrectAnswer = q.CorrectAnswer.String()
		}
		b.Items = append(b.Items, item)
	}

	return b
}

// TypeLabel is the short label shown next to a question.
func TypeLabel(kind models.QuestionType) string {
	switch kind {
	case models.QuestionTypeNumerical:
		return "Numerical"
	case models.QuestionTypeMSQ:
		return "MSQ"
	default:
		return "MCQ"
	}
}

// FormatDuration renders seconds as "Xm Ys", dropping the minutes when zero.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	mins := seconds / 60
	secs := seconds % 60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatMarks renders marks with two decimals and an explicit sign.
func FormatMarks(v float64, attempted bool) string {
	if !attempted {
		return "0.00"
	}
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// round2 rounds to two decimals, the precision results are reported with.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// NumericTolerance is the absolute tolerance for numerical answers.
const NumericTolerance = 0.001

// ValidateAnswer reports whether a saved answer matches the answer key.
// Nil or null answers are never correct.
func ValidateAnswer(user *Answer, key models.AnswerKey, kind models.QuestionType) bool {
	if user == nil || user.IsNull() {
		return false
	}

	if kind == models.QuestionTypeNumerical {
		if len(key.Values) == 0 {
			return false
		}
		got, ok := parseNumber(user.String())
		if !ok {
			return false
		}
		want, ok := parseNumber(key.Values[0])
		if !ok {
			return false
		}
		return math.Abs(got-want) < NumericTolerance
	}

	if key.Multi {
		userValues := user.Values
		if !user.Multi {
			userValues = []string{*user.Value}
		}
		return sortedJoin(userValues) == sortedJoin(key.Values)
	}

	if len(key.Values) == 0 {
		return false
	}
	if user.Multi {
		return strings.Join(user.Values, ",") == key.Values[0]
	}
	return *user.Value == key.Values[0]
}

// MarksObtained applies the marking scheme: full marks when correct, a third
// of the marks off for a wrong attempted single-choice answer, zero otherwise.
func MarksObtained(q *models.Question, user *Answer, correct bool) float64 {
	if correct {
		return float64(q.Marks)
	}
	if user == nil || user.IsNull() {
		return 0
	}
	if q.HasPenalty() {
		return -q.Penalty()
	}
	return 0
}

// Score grades a finished test. answers is keyed by question position and
// ledger holds the seconds spent per position.
func Score(questions []models.Question, answers map[int]Answer, ledger []int) *Result {
	result := &Result{
		Questions:      make([]QuestionResult, 0, len(questions)),
		TotalQuestions: len(questions),
		TotalMaxMarks:  SumMarks(questions),
		SubmittedAt:    time.Now().UTC(),
	}

	for i := range questions {
		q := &questions[i]
		kind := q.Kind()

		var user *Answer
		if a, ok := answers[i]; ok {
			user = &a
		}
		attempted := user != nil && !user.IsNull()
		correct := ValidateAnswer(user, q.Answer, kind)
		obtained := MarksObtained(q, user, correct)

		spent := 0
		if i < len(ledger) {
			spent = ledger[i]
		}

		if correct {
			result.CorrectCount++
		}
		if attempted {
			result.AttemptedCount++
		}
		result.TotalMarks += obtained
		result.TimeSpent += spent

		result.Questions = append(result.Questions, QuestionResult{
			Number:        i + 1,
			Type:          kind,
			IsMultiple:    kind == models.QuestionTypeMSQ,
			Attempted:     attempted,
			Correct:       correct,
			UserAnswer:    user,
			CorrectAnswer: q.Answer,
			TimeSpent:     spent,
			Marks:         q.Marks,
			MarksObtained: obtained,
			Explanation:   q.Explanation,
		})
	}

	// Ledger slots past the question list still count towards total time.
	for i := len(questions); i < len(ledger); i++ {
		result.TimeSpent += ledger[i]
	}

	result.Accuracy = Accuracy(result.CorrectCount, result.AttemptedCount)
	return result
}

// Accuracy is correct/attempted as a percentage, 0 when nothing was attempted.
func Accuracy(correct, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(correct) / float64(attempted) * 100
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func sortedJoin(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

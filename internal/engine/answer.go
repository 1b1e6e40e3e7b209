package engine

import (
	"encoding/json"
	"strings"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// AnswerInput is the widget state of a question: the checked option values
// of a choice question, or the typed text of a numerical one.
type AnswerInput struct {
	Checked []string `json:"checked,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Answer is a saved answer. A single-value answer with a nil Value is null
// and counts as unattempted.
type Answer struct {
	Multi  bool
	Values []string
	Value  *string
}

// TextAnswer builds a single-value answer.
func TextAnswer(v string) Answer {
	return Answer{Value: &v}
}

// SetAnswer builds a multi-select answer.
func SetAnswer(values ...string) Answer {
	return Answer{Multi: true, Values: append([]string{}, values...)}
}

// NullAnswer is a saved single-choice answer with nothing checked.
func NullAnswer() Answer {
	return Answer{}
}

func (a Answer) IsNull() bool {
	return !a.Multi && a.Value == nil
}

// String renders the answer for review screens.
func (a Answer) String() string {
	if a.Multi {
		return strings.Join(a.Values, ", ")
	}
	if a.Value == nil {
		return ""
	}
	return *a.Value
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		values := a.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
	if a.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*a.Value)
}

// answerFromInput applies the save rule for the question's type.
func answerFromInput(kind models.QuestionType, input AnswerInput) Answer {
	switch kind {
	case models.QuestionTypeMSQ:
		return SetAnswer(input.Checked...)
	case models.QuestionTypeNumerical:
		return TextAnswer(strings.TrimSpace(input.Text))
	default:
		if len(input.Checked) == 0 {
			return NullAnswer()
		}
		return TextAnswer(input.Checked[0])
	}
}

// inputFromAnswer restores widget state from a saved answer.
func inputFromAnswer(kind models.QuestionType, a Answer) AnswerInput {
	switch {
	case a.Multi:
		return AnswerInput{Checked: append([]string{}, a.Values...)}
	case a.Value == nil:
		return AnswerInput{}
	case kind == models.QuestionTypeNumerical:
		return AnswerInput{Text: *a.Value}
	default:
		return AnswerInput{Checked: []string{*a.Value}}
	}
}

func sameAnswer(a, b Answer) bool {
	if a.Multi != b.Multi {
		return false
	}
	if a.Multi {
		if len(a.Values) != len(b.Values) {
			return false
		}
		for i := range a.Values {
			if a.Values[i] != b.Values[i] {
				return false
			}
		}
		return true
	}
	if a.Value == nil || b.Value == nil {
		return a.Value == nil && b.Value == nil
	}
	return *a.Value == *b.Value
}

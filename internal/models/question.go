package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "mcq"
	QuestionTypeMSQ       QuestionType = "msq"
	QuestionTypeNumerical QuestionType = "numerical"
)

// IsValid reports whether the type is one of the supported question types.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeMSQ, QuestionTypeNumerical:
		return true
	}
	return false
}

// Question is a single question bank record. The JSON shape matches the
// question bank files: {question, type, options, answer, marks, image, explanation}.
type Question struct {
	ID       uint `json:"id,omitempty" gorm:"primaryKey"`
	BankID   uint `json:"-" gorm:"not null;index"`
	Position int  `json:"-" gorm:"not null;default:0"`

	Text        string                      `json:"question" gorm:"type:text;not null"`
	Type        QuestionType                `json:"type" gorm:"size:20;not null"`
	Options     datatypes.JSONSlice[string] `json:"options,omitempty"`
	Answer      AnswerKey                   `json:"answer"`
	Marks       int                         `json:"marks" gorm:"not null"`
	Image       string                      `json:"image,omitempty" gorm:"size:500"`
	Explanation string                      `json:"explanation,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// Kind resolves the effective question type. Banks often label multi-select
// questions as plain choice questions, so a sequence answer key wins.
func (q *Question) Kind() QuestionType {
	if q.Type == QuestionTypeNumerical {
		return QuestionTypeNumerical
	}
	if q.Answer.Multi || q.Type == QuestionTypeMSQ {
		return QuestionTypeMSQ
	}
	return QuestionTypeMCQ
}

// HasPenalty reports whether a wrong attempted answer costs marks.
func (q *Question) HasPenalty() bool {
	return q.Kind() == QuestionTypeMCQ
}

// Penalty is the deduction for a wrong attempted single-choice answer.
func (q *Question) Penalty() float64 {
	if !q.HasPenalty() {
		return 0
	}
	return float64(q.Marks) / 3
}

// QuestionBank groups the questions a mock test is drawn from.
type QuestionBank struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Slug     string `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Name     string `json:"name" gorm:"size:200;not null"`
	TestType string `json:"testType" gorm:"size:200;not null"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:BankID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (QuestionBank) TableName() string {
	return "question_banks"
}

// AnswerKey holds the correct answer of a question. In JSON it is a string,
// a number, or an array of strings (multi-select).
type AnswerKey struct {
	Values  []string
	Multi   bool
	Numeric bool
}

// SingleAnswer builds a single-choice key.
func SingleAnswer(v string) AnswerKey {
	return AnswerKey{Values: []string{v}}
}

// MultiAnswer builds a multi-select key.
func MultiAnswer(v ...string) AnswerKey {
	return AnswerKey{Values: append([]string{}, v...), Multi: true}
}

// NumericAnswer builds a numerical key.
func NumericAnswer(v float64) AnswerKey {
	return AnswerKey{Values: []string{strconv.FormatFloat(v, 'f', -1, 64)}, Numeric: true}
}

// String returns the single value, or the values joined by ", ".
func (k AnswerKey) String() string {
	return strings.Join(k.Values, ", ")
}

func (k AnswerKey) IsZero() bool {
	return len(k.Values) == 0
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	switch {
	case k.Multi:
		values := k.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	case len(k.Values) == 0:
		return []byte("null"), nil
	case k.Numeric:
		if _, err := strconv.ParseFloat(k.Values[0], 64); err == nil {
			return []byte(k.Values[0]), nil
		}
		return json.Marshal(k.Values[0])
	default:
		return json.Marshal(k.Values[0])
	}
}

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*k = AnswerKey{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid answer list: %w", err)
		}
		k.Multi = true
		k.Values = make([]string, 0, len(raw))
		for _, item := range raw {
			v, _, err := scalarToString(item)
			if err != nil {
				return err
			}
			k.Values = append(k.Values, v)
		}
		return nil
	default:
		v, numeric, err := scalarToString(data)
		if err != nil {
			return err
		}
		k.Values = []string{v}
		k.Numeric = numeric
		return nil
	}
}

func scalarToString(data json.RawMessage) (string, bool, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, fmt.Errorf("invalid answer value: %w", err)
		}
		return s, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", false, fmt.Errorf("invalid answer value %s: %w", string(data), err)
	}
	return n.String(), true, nil
}

// Value implements driver.Valuer.
func (k AnswerKey) Value() (driver.Value, error) {
	data, err := k.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner. Drivers with numeric column affinity
// (sqlite) hand numerical keys back as numbers rather than JSON text.
func (k *AnswerKey) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*k = AnswerKey{}
		return nil
	case []byte:
		return k.UnmarshalJSON(v)
	case string:
		return k.UnmarshalJSON([]byte(v))
	case int64:
		*k = AnswerKey{Values: []string{strconv.FormatInt(v, 10)}, Numeric: true}
		return nil
	case float64:
		*k = AnswerKey{Values: []string{strconv.FormatFloat(v, 'f', -1, 64)}, Numeric: true}
		return nil
	case json.Number:
		*k = AnswerKey{Values: []string{v.String()}, Numeric: true}
		return nil
	default:
		return fmt.Errorf("unsupported answer key source %T", src)
	}
}

// GormDataType stores the key as a JSON column.
func (AnswerKey) GormDataType() string {
	return "json"
}

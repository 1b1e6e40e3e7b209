package engine

import (
	"testing"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
		{-3, "0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatMarks(t *testing.T) {
	tests := []struct {
		name      string
		v         float64
		attempted bool
		want      string
	}{
		{"positive", 2, true, "+2.00"},
		{"penalty", -1.0 / 3.0, true, "-0.33"},
		{"zero attempted", 0, true, "+0.00"},
		{"unattempted", 0, false, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMarks(tt.v, tt.attempted); got != tt.want {
				t.Errorf("FormatMarks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	questions := []models.Question{
		mcq("right", 2, "A"),
		mcq("wrong", 3, "A"),
		msq("skipped", 2, "A", "B"),
		numerical("num", 1, 4.5),
	}
	answers := map[int]Answer{
		0: TextAnswer("A"),
		1: TextAnswer("C"),
		3: TextAnswer("4.5"),
	}

	b := Render(Score(questions, answers, []int{30, 75, 0, 12}))

	if b.Summary.Accuracy != "66.67" {
		t.Errorf("Accuracy = %q, want 66.67", b.Summary.Accuracy)
	}
	if b.Summary.ObtainedMarks != "2.00" {
		t.Errorf("ObtainedMarks = %q, want 2.00", b.Summary.ObtainedMarks)
	}
	if b.Summary.TimeSpent != "1m 57s" {
		t.Errorf("TimeSpent = %q, want 1m 57s", b.Summary.TimeSpent)
	}

	wantStatus := []ResultStatus{StatusCorrect, StatusIncorrect, StatusUnattempted, StatusCorrect}
	wantLabel := []string{"MCQ", "MCQ", "MSQ", "Numerical"}
	for i, item := range b.Items {
		if item.Status != wantStatus[i] {
			t.Errorf("item %d status = %s, want %s", i+1, item.Status, wantStatus[i])
		}
		if item.TypeLabel != wantLabel[i] {
			t.Errorf("item %d label = %s, want %s", i+1, item.TypeLabel, wantLabel[i])
		}
	}

	wrong := b.Items[1]
	if wrong.YourAnswer != "C" || wrong.CorrectAnswer != "A" || wrong.MarksObtained != "-1.00" {
		t.Errorf("wrong item = %+v", wrong)
	}
	if b.Items[0].YourAnswer != "" || b.Items[2].CorrectAnswer != "" {
		t.Error("answers should only be shown for wrong attempts")
	}
	if b.Items[2].MarksObtained != "0.00" {
		t.Errorf("unattempted marks = %q", b.Items[2].MarksObtained)
	}
}

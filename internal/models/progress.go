package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressDetails carries the per-test counters of a progress entry.
type ProgressDetails struct {
	CorrectAnswers int `json:"correctAnswers"`
	Attempted      int `json:"attempted"`
	TimeSpent      int `json:"timeSpent"`
}

// TestProgress is one completed test in a user's history. Entries are append-only.
type TestProgress struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"-" gorm:"not null;index;size:64"`
	TestType   string    `json:"testType" gorm:"not null;size:200"`
	TestID     string    `json:"testId" gorm:"not null;size:100"`
	Score      float64   `json:"score" gorm:"not null"`
	TotalMarks float64   `json:"totalMarks" gorm:"not null"`
	Accuracy   float64   `json:"accuracy" gorm:"not null"`
	DateTaken  time.Time `json:"dateTaken" gorm:"not null;index"`

	Details datatypes.JSONType[ProgressDetails] `json:"details"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (TestProgress) TableName() string {
	return "test_progress"
}

// Percentage is the score relative to the maximum marks of the test.
func (p *TestProgress) Percentage() float64 {
	if p.TotalMarks <= 0 {
		return 0
	}
	return p.Score / p.TotalMarks * 100
}

// CalculateStats recomputes overall statistics from a full history.
func CalculateStats(entries []TestProgress) OverallStats {
	stats := OverallStats{TotalTestsTaken: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	var total float64
	for i := range entries {
		pct := entries[i].Percentage()
		total += pct
		if pct > stats.BestScore {
			stats.BestScore = pct
		}
	}
	stats.AverageScore = total / float64(len(entries))

	return stats
}

// LeaderboardEntry is a ranked user row.
type LeaderboardEntry struct {
	ID            string       `json:"_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	OverallStats  OverallStats `json:"overallStats"`
	IsCurrentUser bool         `json:"isCurrentUser"`
}

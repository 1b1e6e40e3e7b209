package models

import "time"

// ===== ACCOUNT DTOs =====

// UserProfile is the public view of a user.
type UserProfile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Role         UserRole     `json:"role,omitempty"`
	ProfilePic   string       `json:"profilePic"`
	OverallStats OverallStats `json:"overallStats"`
	CreatedAt    time.Time    `json:"createdAt,omitempty"`
}

type AuthResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserProfile `json:"user"`
}

// ===== PROGRESS DTOs =====

// ProgressEntry flattens a progress row for the history view.
type ProgressEntry struct {
	ID             uint      `json:"id"`
	TestType       string    `json:"testType"`
	TestID         string    `json:"testId"`
	Score          float64   `json:"score"`
	TotalMarks     float64   `json:"totalMarks"`
	Accuracy       float64   `json:"accuracy"`
	DateTaken      time.Time `json:"dateTaken"`
	TimeSpent      int       `json:"timeSpent"`
	CorrectAnswers int       `json:"correctAnswers"`
	Attempted      int       `json:"attempted"`
}

// NewProgressEntry builds the history row of a progress record.
func NewProgressEntry(p *TestProgress) ProgressEntry {
	details := p.Details.Data()
	return ProgressEntry{
		ID:             p.ID,
		TestType:       p.TestType,
		TestID:         p.TestID,
		Score:          p.Score,
		TotalMarks:     p.TotalMarks,
		Accuracy:       p.Accuracy,
		DateTaken:      p.DateTaken,
		TimeSpent:      details.TimeSpent,
		CorrectAnswers: details.CorrectAnswers,
		Attempted:      details.Attempted,
	}
}

type ProgressResponse struct {
	Progress     []ProgressEntry `json:"progress"`
	OverallStats OverallStats    `json:"overallStats"`
}

type SaveProgressResponse struct {
	Message      string        `json:"message"`
	Test         ProgressEntry `json:"test"`
	OverallStats OverallStats  `json:"overallStats"`
}

type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ===== QUESTION BANK DTOs =====

type QuestionBankSummary struct {
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	TestType      string    `json:"testType"`
	QuestionCount int64     `json:"questionCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// QuestionsResponse mirrors the question bank file layout.
type QuestionsResponse struct {
	Questions []Question `json:"questions"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Bank     string           `json:"bank"`
	Created  int              `json:"created"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
	Replaced bool             `json:"replaced"`
}

// ===== GENERIC RESPONSES =====

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

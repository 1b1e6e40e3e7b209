package importer

import (
	"bytes"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

const (
	historySheet = "History"
	summarySheet = "Summary"
)

var historyHeader = []interface{}{"Date", "Test Type", "Test", "Score", "Total Marks", "Percentage", "Accuracy", "Correct", "Attempted", "Time Spent (s)"}

// ProgressWorkbook renders a user's history and overall statistics.
func ProgressWorkbook(entries []models.TestProgress, stats models.OverallStats) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i := range entries {
		e := &entries[i]
		details := e.Details.Data()
		row := []interface{}{
			e.DateTaken.UTC().Format("2006-01-02 15:04"),
			e.TestType,
			e.TestID,
			e.Score,
			e.TotalMarks,
			round2(e.Percentage()),
			round2(e.Accuracy),
			details.CorrectAnswers,
			details.Attempted,
			details.TimeSpent,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Total Tests Taken", stats.TotalTestsTaken},
		{"Average Score (%)", round2(stats.AverageScore)},
		{"Best Score (%)", round2(stats.BestScore)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return f.WriteToBuffer()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	// ListSeparator splits options and multi-select keys inside one cell.
	ListSeparator = "|"
)

// Columns of a question sheet, matched case-insensitively against the header row.
var sheetColumns = []string{"question", "type", "options", "answer", "marks", "image", "explanation"}

// ParsedBank is a question bank read from a file. Rows holds the source row
// (or array position) of each question for error reporting.
type ParsedBank struct {
	Slug      string
	Name      string
	TestType  string
	Questions []models.Question
	Rows      []int
	Errors    []models.ImportRowError
}

type bankDocument struct {
	Name      string            `json:"name"`
	TestType  string            `json:"testType"`
	Questions []models.Question `json:"questions"`
}

// DetectFormat picks the parser from a file name.
func DetectFormat(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported question bank file %q: expected .json or .xlsx", filename)
	}
}

// Parse reads a bank in the given format.
func Parse(format string, r io.Reader) (*ParsedBank, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ParseJSON accepts either a bare array of questions or an object with
// name, testType and questions.
func ParseJSON(r io.Reader) (*ParsedBank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty question bank")
	}

	var doc bankDocument
	if data[0] == '[' {
		if err := json.Unmarshal(data, &doc.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode bank: %w", err)
	}

	bank := &ParsedBank{Name: doc.Name, TestType: doc.TestType, Questions: doc.Questions}
	bank.Rows = make([]int, len(doc.Questions))
	for i := range bank.Rows {
		bank.Rows[i] = i + 1
	}
	return bank, nil
}

// ParseXLSX reads the first sheet of a workbook. The first row is a header
// naming the columns; options and multi-select answers are "|" separated.
func ParseXLSX(r io.Reader) (*ParsedBank, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	index := map[string]int{}
	for i, cell := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	for _, required := range []string{"question", "type", "answer", "marks"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q in header", required)
		}
	}

	bank := &ParsedBank{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			col, ok := index[name]
			if !ok || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}
		if strings.Join(row, "") == "" {
			continue
		}

		q, err := questionFromRow(cell)
		if err != nil {
			bank.Errors = append(bank.Errors, models.ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		bank.Questions = append(bank.Questions, q)
		bank.Rows = append(bank.Rows, rowNum)
	}
	return bank, nil
}

func questionFromRow(cell func(string) string) (models.Question, error) {
	q := models.Question{
		Text:        cell("question"),
		Type:        models.QuestionType(strings.ToLower(cell("type"))),
		Image:       cell("image"),
		Explanation: cell("explanation"),
	}

	marks, err := strconv.Atoi(cell("marks"))
	if err != nil {
		return q, fmt.Errorf("marks %q is not a whole number", cell("marks"))
	}
	q.Marks = marks

	if opts := cell("options"); opts != "" {
		q.Options = splitList(opts)
	}

	answer := cell("answer")
	switch {
	case answer == "":
		// left empty; validation reports it
	case q.Type == models.QuestionTypeNumerical:
		v, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return q, fmt.Errorf("numerical answer %q is not a number", answer)
		}
		q.Answer = models.NumericAnswer(v)
	case q.Type == models.QuestionTypeMSQ || strings.Contains(answer, ListSeparator):
		q.Answer = models.MultiAnswer(splitList(answer)...)
	default:
		q.Answer = models.SingleAnswer(answer)
	}
	return q, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDir parses every *.json bank in dir. The slug is the file name
// without its extension.
func LoadDir(dir string) ([]*ParsedBank, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(matches)

	banks := make([]*ParsedBank, 0, len(matches))
	for _, path := range matches {
		bank, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		banks = append(banks, bank)
	}
	return banks, nil
}

func loadFile(path string) (*ParsedBank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	bank, err := ParseJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	bank.Slug = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return bank, nil
}

// SlugTitle turns a slug such as engineering_math into "Engineering Math".
func SlugTitle(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// BankTemplate builds an empty question sheet with the expected header.
func BankTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(sheetColumns))
	for i, c := range sheetColumns {
		header[i] = c
	}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return f.WriteToBuffer()
}

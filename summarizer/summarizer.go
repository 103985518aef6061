// Package summarizer reads persisted datasets back and derives per-format summary reports.
//
// Summaries never modify their input. Missing or unreadable files yield a
// models.ReadError; malformed content yields a models.ParseError.
package summarizer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-fetch-datasets/models"
)

// Summarizer produces summary reports for persisted files.
type Summarizer struct {
	logger *slog.Logger
}

// New returns a summarizer. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// Summarize dispatches to the summary for format.
func (s *Summarizer) Summarize(format models.Format, path string) (*models.Report, error) {
	var (
		report *models.Report
		err    error
	)
	switch format {
	case models.FormatText:
		report, err = s.Text(path)
	case models.FormatCSV:
		report, err = s.CSV(path)
	case models.FormatExcel:
		report, err = s.Excel(path)
	case models.FormatJSON:
		report, err = s.JSON(path)
	default:
		return nil, &models.ParseError{Path: path, Format: format, Err: fmt.Errorf("unsupported format %q", format)}
	}
	if err != nil {
		s.logger.Error("summary failed",
			slog.String("path", path),
			slog.String("format", string(format)),
			slog.String("kind", models.KindOf(err)),
			slog.Any("error", err),
		)
		return nil, err
	}
	s.logger.Info("data processed",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("metrics", len(report.Metrics)),
	)
	return report, nil
}

// Text counts whitespace separated words, case-insensitively.
func (s *Summarizer) Text(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}

	words := strings.Fields(strings.ToLower(string(data)))
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}

	report := models.NewReport(models.FormatText, path)
	report.Add("total_words", len(words))
	report.Add("unique_words", len(unique))
	return report, nil
}

// CSV treats the first record as the header and counts data rows and the
// non-empty values of each column.
func (s *Summarizer) CSV(path string) (*models.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	report := models.NewReport(models.FormatCSV, path)

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		report.Add("total_rows", 0)
		report.Add("total_columns", 0)
		return report, nil
	}
	if err != nil {
		return nil, csvError(path, err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	counts := make([]int, len(headers))
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(path, err)
		}
		rows++
		for i, value := range record {
			if i >= len(counts) {
				break
			}
			if value != "" {
				counts[i]++
			}
		}
	}

	report.Add("total_rows", rows)
	report.Add("total_columns", len(headers))
	for i, header := range headers {
		report.Add("column."+header, counts[i])
	}
	return report, nil
}

func csvError(path string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &models.ParseError{Path: path, Format: models.FormatCSV, Err: err}
	}
	return &models.ReadError{Path: path, Err: err}
}

// JSON reports the number of items and, for an array of objects, the keys of
// the first object in sorted order.
func (s *Summarizer) JSON(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &models.ParseError{Path: path, Format: models.FormatJSON, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &models.ParseError{Path: path, Format: models.FormatJSON, Err: fmt.Errorf("unexpected data after top-level value")}
	}

	report := models.NewReport(models.FormatJSON, path)
	items, ok := value.([]any)
	if !ok {
		report.Add("items", 1)
		return report, nil
	}

	report.Add("items", len(items))
	if len(items) > 0 {
		if first, ok := items[0].(map[string]any); ok {
			keys := make([]string, 0, len(first))
			for k := range first {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			report.Add("keys", keys)
		}
	}
	return report, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

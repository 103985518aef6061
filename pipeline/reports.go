package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/parquet-go/parquet-go"
)

// ReportWriter persists a summary report next to the file it describes.
type ReportWriter interface {
	// WriteReport writes report to folder/name (with the writer's extension)
	// and returns every path written.
	WriteReport(folder, name string, report *models.Report) ([]string, error)
	Extension() string
}

// NewReportWriter returns the implementation for format (text, json, csv, parquet, dual).
func NewReportWriter(format string) (ReportWriter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "txt":
		return TextReportWriter{}, nil
	case "json":
		return JSONReportWriter{}, nil
	case "csv":
		return CSVReportWriter{}, nil
	case "parquet":
		return ParquetReportWriter{}, nil
	case "dual":
		return NewDualWriter(TextReportWriter{}, JSONReportWriter{}), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// reportPath swaps the extension of name for ext.
func reportPath(folder, name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(folder, base+"."+ext)
}

// TextReportWriter renders the human-readable report.
type TextReportWriter struct{}

func (TextReportWriter) Extension() string { return "txt" }

func (tw TextReportWriter) WriteReport(folder, name string, report *models.Report) ([]string, error) {
	path := reportPath(folder, name, tw.Extension())
	if err := writeFileAtomic(path, []byte(RenderText(report))); err != nil {
		return nil, &models.WriteError{Path: path, Err: err}
	}
	return []string{path}, nil
}

// RenderText formats report the way it is printed and saved as text.
func RenderText(report *models.Report) string {
	var b strings.Builder
	if report == nil {
		return ""
	}
	fmt.Fprintf(&b, "%s:\n", report.Title)
	for _, m := range report.Metrics {
		fmt.Fprintf(&b, "%s: %s\n", humanize(m.Name), m.Value)
	}
	return b.String()
}

// humanize turns "total_words" into "Total words"; dotted names are kept as-is.
func humanize(name string) string {
	if strings.Contains(name, ".") || name == "" {
		return name
	}
	s := strings.ReplaceAll(name, "_", " ")
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// JSONReportWriter writes the report as an indented JSON document.
type JSONReportWriter struct{}

func (JSONReportWriter) Extension() string { return "json" }

func (jw JSONReportWriter) WriteReport(folder, name string, report *models.Report) ([]string, error) {
	path := reportPath(folder, name, jw.Extension())
	data, err := encodeJSON(report)
	if err != nil {
		return nil, &models.WriteError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, &models.WriteError{Path: path, Err: err}
	}
	return []string{path}, nil
}

// CSVReportWriter writes one name,value row per metric.
type CSVReportWriter struct{}

func (CSVReportWriter) Extension() string { return "csv" }

func (cw CSVReportWriter) WriteReport(folder, name string, report *models.Report) ([]string, error) {
	path := reportPath(folder, name, cw.Extension())

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"name", "value"}); err != nil {
		return nil, &models.WriteError{Path: path, Err: fmt.Errorf("write csv header: %w", err)}
	}
	for _, m := range report.Metrics {
		if err := writer.Write([]string{m.Name, m.Value}); err != nil {
			return nil, &models.WriteError{Path: path, Err: fmt.Errorf("write csv record: %w", err)}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, &models.WriteError{Path: path, Err: fmt.Errorf("flush csv records: %w", err)}
	}

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return nil, &models.WriteError{Path: path, Err: err}
	}
	return []string{path}, nil
}

// ParquetReportWriter writes metrics as a two-column Parquet file.
type ParquetReportWriter struct{}

func (ParquetReportWriter) Extension() string { return "parquet" }

func (pw ParquetReportWriter) WriteReport(folder, name string, report *models.Report) ([]string, error) {
	path := reportPath(folder, name, pw.Extension())
	if err := ensureDir(path); err != nil {
		return nil, &models.WriteError{Path: path, Err: err}
	}
	if err := parquet.WriteFile(path, report.Metrics); err != nil {
		os.Remove(path)
		return nil, &models.WriteError{Path: path, Err: fmt.Errorf("write parquet: %w", err)}
	}
	return []string{path}, nil
}

// Package models defines data structures shared by the fetch, write and summarize stages.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format tags the content type of a fetched payload or persisted file.
type Format string

const (
	FormatText  Format = "text"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

// Formats lists every supported format in pipeline order.
var Formats = []Format{FormatText, FormatCSV, FormatExcel, FormatJSON}

// ParseFormat maps a user supplied format name (or common file extension) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "."))) {
	case "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xls", "xlsx":
		return FormatExcel, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Binary reports whether payloads of this format are persisted byte-for-byte.
func (f Format) Binary() bool {
	return f == FormatExcel
}

// FolderResult describes one directory handled by the provisioner.
type FolderResult struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

// Payload is the raw result of a single fetch.
type Payload struct {
	URL         string
	Format      Format
	Body        []byte
	Decoded     any // only set for FormatJSON
	ContentType string
	FetchedAt   time.Time
}

// Text returns the payload body as a string.
func (p *Payload) Text() string {
	if p == nil {
		return ""
	}
	return string(p.Body)
}

// Dataset is one unit of work for the pipeline: where to fetch from and where to persist.
type Dataset struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	URL        string `yaml:"url" json:"url" validate:"required,url"`
	Format     Format `yaml:"format" json:"format" validate:"required,oneof=text csv excel json"`
	Folder     string `yaml:"folder" json:"folder" validate:"required"`
	Filename   string `yaml:"filename" json:"filename" validate:"required"`
	ReportName string `yaml:"report_name" json:"report_name" validate:"required"`
}

// Metric is a single named value of a summary report.
type Metric struct {
	Name  string `json:"name" csv:"name" parquet:"name"`
	Value string `json:"value" csv:"value" parquet:"value"`
}

// Report is a flat, ordered mapping of metric name to value derived from a persisted file.
type Report struct {
	Title   string   `json:"title"`
	Source  string   `json:"source"`
	Format  Format   `json:"format"`
	Metrics []Metric `json:"metrics"`
}

// NewReport returns an empty report for the file at source.
func NewReport(format Format, source string) *Report {
	return &Report{
		Title:  fmt.Sprintf("Summary of %s data", format),
		Source: source,
		Format: format,
	}
}

// Add appends a metric, formatting value with fmt's default verb for strings
// and numbers and joining string slices with ", ".
func (r *Report) Add(name string, value any) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		s = strings.Join(v, ", ")
	default:
		s = fmt.Sprint(v)
	}
	r.Metrics = append(r.Metrics, Metric{Name: name, Value: s})
}

// Get returns the value of the first metric called name.
func (r *Report) Get(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// Int returns the metric called name parsed as an integer.
func (r *Report) Int(name string) (int, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Failure records one failed pipeline step.
type Failure struct {
	Dataset string
	Step    string
	Kind    string
	Target  string
	Err     error
}

// RunResult holds the overall result of a pipeline run.
type RunResult struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	Datasets     int
	Fetched      int
	Written      int
	Summarized   int
	Skipped      int
	ErrorCount   int
	ErrorsByKind map[string]int
	Failures     []Failure
	ReportPaths  []string
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

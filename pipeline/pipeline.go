package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/config"
	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/aluiziolira/go-fetch-datasets/parser"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultSeenCacheSize = 128

// Pipeline steps, in execution order.
const (
	StepValidate  = "validate"
	StepFetch     = "fetch"
	StepWrite     = "write"
	StepSummarize = "summarize"
	StepReport    = "report"
)

// KindInvalid labels datasets rejected before any I/O.
const KindInvalid = "invalid"

// Fetcher retrieves one remote payload.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, format models.Format) (*models.Payload, error)
}

// Summarizer reads a persisted file back and reports on it.
type Summarizer interface {
	Summarize(format models.Format, path string) (*models.Report, error)
}

// StepError records which step of which dataset failed.
type StepError struct {
	Dataset string
	Step    string
	Target  string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("dataset %q: %s %s: %v", e.Dataset, e.Step, e.Target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Kind returns the error-kind label used for bookkeeping.
func (e *StepError) Kind() string {
	if e.Step == StepValidate {
		return KindInvalid
	}
	return models.KindOf(e.Err)
}

// Outcome describes how far one dataset got through the pipeline.
type Outcome struct {
	Dataset     string
	DataPath    string
	Report      *models.Report
	ReportPaths []string
	Fetched     bool
	Written     bool
	Summarized  bool
	Skipped     bool
}

// Pipeline drives fetch, write and summarize for each dataset in turn.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	writer     *Writer
	summarizer Summarizer
	reports    ReportWriter
	logger     *slog.Logger
	out        io.Writer

	seen *lru.Cache[string, struct{}]

	metrics metrics
	steps   *prometheus.CounterVec
}

// NewPipeline wires a pipeline from cfg. A nil logger falls back to slog.Default().
func NewPipeline(cfg *config.Config, fetcher Fetcher, summarizer Summarizer, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if fetcher == nil || summarizer == nil {
		return nil, fmt.Errorf("fetcher and summarizer are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reports, err := NewReportWriter(cfg.ReportFormat)
	if err != nil {
		return nil, err
	}

	size := cfg.SeenCacheSize
	if size <= 0 {
		size = defaultSeenCacheSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		writer:     NewWriter(logger),
		summarizer: summarizer,
		reports:    reports,
		logger:     logger,
		seen:       seen,
		metrics:    newMetrics(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_steps_total",
				Help: "Pipeline steps executed by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
	}, nil
}

// WithOutput echoes every rendered text report to w.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.out = w
	return p
}

// Register adds the pipeline's collectors to reg.
func (p *Pipeline) Register(reg prometheus.Registerer) error {
	return reg.Register(p.steps)
}

// Run processes datasets sequentially. A failing dataset is recorded and the
// run moves on; a cancelled context skips the remaining datasets.
func (p *Pipeline) Run(ctx context.Context, datasets []models.Dataset) *models.RunResult {
	if ctx == nil {
		ctx = context.Background()
	}
	// Duplicates are detected within a single run only.
	p.seen.Purge()

	result := &models.RunResult{
		RunID:        uuid.NewString(),
		StartTime:    time.Now(),
		Datasets:     len(datasets),
		ErrorsByKind: make(map[string]int),
	}
	logger := p.logger.With(slog.String("run_id", result.RunID))
	logger.Info("pipeline started", slog.Int("datasets", len(datasets)))

	for i := range datasets {
		if err := ctx.Err(); err != nil {
			result.Skipped += len(datasets) - i
			logger.Warn("pipeline interrupted", slog.Int("remaining", len(datasets)-i), slog.Any("error", err))
			break
		}

		outcome, err := p.RunDataset(ctx, datasets[i])
		if outcome.Fetched {
			result.Fetched++
		}
		if outcome.Written {
			result.Written++
		}
		if outcome.Summarized {
			result.Summarized++
		}
		if outcome.Skipped {
			result.Skipped++
		}
		result.ReportPaths = append(result.ReportPaths, outcome.ReportPaths...)

		if err != nil {
			failure := models.Failure{Dataset: datasets[i].Name, Kind: models.KindOf(err), Err: err}
			var stepErr *StepError
			if errors.As(err, &stepErr) {
				failure.Step = stepErr.Step
				failure.Kind = stepErr.Kind()
				failure.Target = stepErr.Target
			}
			result.ErrorCount++
			result.ErrorsByKind[failure.Kind]++
			result.Failures = append(result.Failures, failure)
		}
	}

	result.EndTime = time.Now()
	logger.Info("pipeline finished",
		slog.Int("written", result.Written),
		slog.Int("summarized", result.Summarized),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("duration", result.Duration()),
	)
	return result
}

// RunDataset validates, fetches, writes and summarizes one dataset. The first
// failing step ends the dataset and is returned as a *StepError. A dataset
// whose destination was already written during the current run is skipped.
func (p *Pipeline) RunDataset(ctx context.Context, d models.Dataset) (*Outcome, error) {
	outcome := &Outcome{Dataset: d.Name}
	logger := p.logger.With(slog.String("dataset", d.Name))

	if err := parser.ValidateDataset(&d); err != nil {
		return outcome, p.failStep(logger, d, StepValidate, d.Name, err)
	}
	p.steps.WithLabelValues(StepValidate, "ok").Inc()

	folder := p.cfg.FolderPath(d.Folder)
	dest := filepath.Join(folder, d.Filename)
	if p.seen.Contains(dest) {
		outcome.Skipped = true
		p.metrics.addValidation("duplicate_target")
		p.steps.WithLabelValues(StepValidate, "skipped").Inc()
		logger.Warn("duplicate destination skipped", slog.String("path", dest))
		return outcome, nil
	}

	payload, err := p.fetcher.Fetch(ctx, d.URL, d.Format)
	if err != nil {
		return outcome, p.failStep(logger, d, StepFetch, d.URL, err)
	}
	outcome.Fetched = true
	p.steps.WithLabelValues(StepFetch, "ok").Inc()

	path, err := p.writer.Write(folder, d.Filename, payload)
	if err != nil {
		return outcome, p.failStep(logger, d, StepWrite, dest, err)
	}
	outcome.Written = true
	outcome.DataPath = path
	p.seen.Add(dest, struct{}{})
	p.steps.WithLabelValues(StepWrite, "ok").Inc()

	report, err := p.summarizer.Summarize(d.Format, path)
	if err != nil {
		return outcome, p.failStep(logger, d, StepSummarize, path, err)
	}
	outcome.Summarized = true
	outcome.Report = report
	p.steps.WithLabelValues(StepSummarize, "ok").Inc()

	if p.out != nil {
		fmt.Fprintln(p.out, RenderText(report))
	}

	paths, err := p.reports.WriteReport(folder, d.ReportName, report)
	outcome.ReportPaths = paths
	if err != nil {
		return outcome, p.failStep(logger, d, StepReport, filepath.Join(folder, d.ReportName), err)
	}
	p.steps.WithLabelValues(StepReport, "ok").Inc()

	p.metrics.incrementProcessed()
	logger.Info("dataset processed",
		slog.String("data", path),
		slog.Any("reports", paths),
	)
	return outcome, nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) failStep(logger *slog.Logger, d models.Dataset, step, target string, err error) error {
	stepErr := &StepError{Dataset: d.Name, Step: step, Target: target, Err: err}
	kind := stepErr.Kind()

	p.steps.WithLabelValues(step, "error").Inc()
	p.metrics.addError(kind)
	if step == StepValidate {
		p.metrics.addValidation("invalid_dataset")
	}

	logger.Error("pipeline step failed",
		slog.String("step", step),
		slog.String("target", target),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	return stepErr
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
	errors     map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
		errors:     make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) addError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	copyErrors := make(map[string]int, len(m.errors))
	for k, v := range m.errors {
		copyErrors[k] = v
	}

	return map[string]interface{}{
		"processed_datasets": m.processed,
		"validation_errors":  copyValidation,
		"errors_by_kind":     copyErrors,
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/analytics"
	"github.com/aluiziolira/go-fetch-datasets/config"
	"github.com/aluiziolira/go-fetch-datasets/fetcher"
	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/aluiziolira/go-fetch-datasets/pipeline"
	"github.com/aluiziolira/go-fetch-datasets/provision"
	"github.com/aluiziolira/go-fetch-datasets/summarizer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// prefixedFolders are created as FolderPrefix+name.
var prefixedFolders = []string{"txt", "csv", "excel", "json"}

func main() {
	configPath := flag.String("config", "", "Optional YAML configuration file")
	dataDir := flag.String("data-dir", "", "Root directory for provisioned folders and datasets")
	reportFormat := flag.String("report-format", "", "Report format: text, json, csv, parquet, or dual")
	periodicCount := flag.Int("periodic-count", 0, "Number of periodic folders to create")
	periodicInterval := flag.Duration("periodic-interval", 0, "Delay between periodic folder creations")
	timeout := flag.Duration("timeout", 0, "HTTP request timeout (0 keeps the client default)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	// Explicit flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = *dataDir
		case "report-format":
			cfg.ReportFormat = strings.ToLower(*reportFormat)
		case "periodic-count":
			cfg.PeriodicCount = *periodicCount
		case "periodic-interval":
			cfg.PeriodicInterval = *periodicInterval
		case "timeout":
			cfg.Timeout = *timeout
		case "v":
			cfg.Verbose = *verbose
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	f, err := fetcher.NewFetcher(cfg, logger)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}
	p, err := pipeline.NewPipeline(cfg, f, summarizer.New(logger), logger)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	p.WithOutput(os.Stdout)
	if err := p.Register(f.Metrics.Registry); err != nil {
		slog.Error("registering pipeline metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current step")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(f.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	fmt.Println(analytics.Byline(analytics.DefaultProfile()))

	folders := provisionFolders(ctx, cfg, logger)

	slog.Info("starting fetch",
		slog.String("data_dir", cfg.DataDir),
		slog.Int("datasets", len(cfg.Datasets)),
		slog.String("report_format", cfg.ReportFormat),
	)
	result := p.Run(ctx, cfg.Datasets)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, folders, p.GetMetrics())
}

// provisionFolders runs the demonstration provisioning sequence. Failures are
// logged and the sequence continues; it returns the number of folders created.
func provisionFolders(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	prov := provision.NewProvisioner(cfg.DataDir, logger)
	created := 0
	record := func(step string, results []models.FolderResult, err error) {
		for _, r := range results {
			if r.Created {
				created++
			}
		}
		if err != nil {
			logger.Error("provisioning failed",
				slog.String("step", step),
				slog.String("kind", models.KindOf(err)),
				slog.Any("error", err),
			)
		}
	}

	results, err := prov.CreateRange(cfg.StartYear, cfg.EndYear)
	record("range", results, err)

	results, err = prov.CreateFromNames(cfg.FolderNames, provision.NameOptions{})
	record("names", results, err)

	results, err = prov.CreatePrefixed(prefixedFolders, cfg.FolderPrefix)
	record("prefixed", results, err)

	results, err = prov.CreatePeriodic(ctx, cfg.PeriodicCount, cfg.PeriodicInterval)
	record("periodic", results, err)

	results, err = prov.CreateFromNames(cfg.Regions, provision.NameOptions{Lowercase: true, ReplaceSpaces: true})
	record("regions", results, err)

	return created
}

func printSummary(result *models.RunResult, folders int, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Fetch complete")

	fmt.Printf("  Run ID:        %s\n", result.RunID)
	fmt.Printf("  Folders:       %d created\n", folders)
	fmt.Printf("  Datasets:      %d\n", result.Datasets)
	fmt.Printf("  Fetched:       %d\n", result.Fetched)
	fmt.Printf("  Written:       %d\n", result.Written)
	fmt.Printf("  Summarized:    %d\n", result.Summarized)
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:       %d\n", result.Skipped)
	}
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByKind) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByKind)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	for _, failure := range result.Failures {
		fmt.Printf("  Failed:        %s (%s, %s): %v\n", failure.Dataset, failure.Step, failure.Kind, failure.Err)
	}
	fmt.Printf("  Duration:      %v\n", result.Duration())
	if len(result.ReportPaths) > 0 {
		paths := append([]string(nil), result.ReportPaths...)
		sort.Strings(paths)
		fmt.Printf("  Reports:       %s\n", strings.Join(paths, ", "))
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

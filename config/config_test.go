package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/models"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty data dir",
			mutate: func(cfg *Config) {
				cfg.DataDir = " "
			},
			wantErr: "data dir",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown report format",
			mutate: func(cfg *Config) {
				cfg.ReportFormat = "xml"
			},
			wantErr: "report format",
		},
		{
			name: "inverted year range",
			mutate: func(cfg *Config) {
				cfg.StartYear = 2024
				cfg.EndYear = 2020
			},
			wantErr: "start year",
		},
		{
			name: "negative periodic interval",
			mutate: func(cfg *Config) {
				cfg.PeriodicInterval = -time.Second
			},
			wantErr: "periodic interval",
		},
		{
			name: "dataset without host",
			mutate: func(cfg *Config) {
				cfg.Datasets[0].URL = "http://"
			},
			wantErr: "host",
		},
		{
			name: "dataset with unknown format",
			mutate: func(cfg *Config) {
				cfg.Datasets[1].Format = models.Format("yaml")
			},
			wantErr: "unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if len(cfg.Datasets) != 4 {
		t.Fatalf("datasets=%d, want 4", len(cfg.Datasets))
	}
	if cfg.Datasets[2].Folder != "data-excel" || cfg.Datasets[2].Format != models.FormatExcel {
		t.Fatalf("unexpected excel dataset: %+v", cfg.Datasets[2])
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetcher.yaml")
	content := `data_dir: from-file
report_format: json
periodic_interval: 250ms
datasets:
  - name: only
    url: https://example.test/only.json
    format: json
    folder: data-json
    filename: data.json
    report_name: results_json.txt
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FETCHER_REPORT_FORMAT", "csv")
	t.Setenv("FETCHER_REGIONS", "Europe,Asia")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "from-file" {
		t.Fatalf("data dir = %q, want from-file", cfg.DataDir)
	}
	if cfg.ReportFormat != "csv" {
		t.Fatalf("env should override file: report format = %q", cfg.ReportFormat)
	}
	if cfg.PeriodicInterval != 250*time.Millisecond {
		t.Fatalf("periodic interval = %v, want 250ms", cfg.PeriodicInterval)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[1] != "Asia" {
		t.Fatalf("regions = %v", cfg.Regions)
	}
	if len(cfg.Datasets) != 1 || cfg.Datasets[0].Name != "only" {
		t.Fatalf("datasets = %+v", cfg.Datasets)
	}
	if cfg.StartYear != 2020 {
		t.Fatalf("unset values should keep defaults, start year = %d", cfg.StartYear)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("FETCHER_START_YEAR", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for non-numeric start year")
	}
}

func TestLoadDerivesDatasetFoldersFromPrefix(t *testing.T) {
	t.Setenv("FETCHER_FOLDER_PREFIX", "raw-")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Datasets) != 4 {
		t.Fatalf("datasets = %d, want 4", len(cfg.Datasets))
	}
	for _, d := range cfg.Datasets {
		if want := "raw-" + d.Name; d.Folder != want {
			t.Fatalf("dataset %s folder = %q, want %q", d.Name, d.Folder, want)
		}
	}
}

func TestLoadFilePrefixAppliesToSampleDatasets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetcher.yaml")
	content := `folder_prefix: files-
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Datasets[0].Folder != "files-txt" {
		t.Fatalf("folder = %q, want files-txt", cfg.Datasets[0].Folder)
	}
}

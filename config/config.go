package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FETCHER"

// Config holds pipeline configuration.
type Config struct {
	DataDir          string           `yaml:"data_dir" envconfig:"DATA_DIR"`
	Timeout          time.Duration    `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxBodySize      int              `yaml:"max_body_size" envconfig:"MAX_BODY_SIZE"`
	UserAgent        string           `yaml:"user_agent" envconfig:"USER_AGENT"`
	ReportFormat     string           `yaml:"report_format" envconfig:"REPORT_FORMAT"` // text, json, csv, parquet, or dual
	FolderPrefix     string           `yaml:"folder_prefix" envconfig:"FOLDER_PREFIX"`
	StartYear        int              `yaml:"start_year" envconfig:"START_YEAR"`
	EndYear          int              `yaml:"end_year" envconfig:"END_YEAR"`
	FolderNames      []string         `yaml:"folder_names" envconfig:"FOLDER_NAMES"`
	Regions          []string         `yaml:"regions" envconfig:"REGIONS"`
	PeriodicCount    int              `yaml:"periodic_count" envconfig:"PERIODIC_COUNT"`
	PeriodicInterval time.Duration    `yaml:"periodic_interval" envconfig:"PERIODIC_INTERVAL"`
	SeenCacheSize    int              `yaml:"seen_cache_size" envconfig:"SEEN_CACHE_SIZE"`
	Datasets         []models.Dataset `yaml:"datasets" ignored:"true"`
	Verbose          bool             `yaml:"verbose" envconfig:"VERBOSE"`
	MetricsAddr      string           `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// DefaultConfig returns the settings of the demonstration run.
func DefaultConfig() *Config {
	return &Config{
		DataDir:          "data",
		Timeout:          0,
		MaxBodySize:      0,
		UserAgent:        "go-fetch-datasets/1.0 (+https://github.com/aluiziolira/go-fetch-datasets)",
		ReportFormat:     "text",
		FolderPrefix:     "data-",
		StartYear:        2020,
		EndYear:          2023,
		FolderNames:      []string{"data-csv", "data-excel", "data-json"},
		Regions:          []string{"North America", "South America", "Europe", "Asia", "Africa", "Oceania", "Middle East"},
		PeriodicCount:    3,
		PeriodicInterval: 5 * time.Second,
		SeenCacheSize:    128,
		Datasets:         DefaultDatasets("data-"),
		Verbose:          false,
		MetricsAddr:      "",
	}
}

// DefaultDatasets returns the four sample datasets, each written to prefix+<kind>.
func DefaultDatasets(prefix string) []models.Dataset {
	return []models.Dataset{
		{
			Name:       "txt",
			URL:        "https://shakespeare.mit.edu/romeo_juliet/full.html",
			Format:     models.FormatText,
			Folder:     prefix + "txt",
			Filename:   "data.txt",
			ReportName: "results_txt.txt",
		},
		{
			Name:       "csv",
			URL:        "https://raw.githubusercontent.com/MainakRepositor/Datasets/master/World%20Happiness%20Data/2020.csv",
			Format:     models.FormatCSV,
			Folder:     prefix + "csv",
			Filename:   "data.csv",
			ReportName: "results_csv.txt",
		},
		{
			Name:       "excel",
			URL:        "https://github.com/bharathirajatut/sample-excel-dataset/raw/master/cattle.xls",
			Format:     models.FormatExcel,
			Folder:     prefix + "excel",
			Filename:   "data.xls",
			ReportName: "results_xls.txt",
		},
		{
			Name:       "json",
			URL:        "http://api.open-notify.org/astros.json",
			Format:     models.FormatJSON,
			Folder:     prefix + "json",
			Filename:   "data.json",
			ReportName: "results_json.txt",
		},
	}
}

// Load builds a configuration from defaults, an optional YAML file and
// FETCHER_* environment variables, in that order of precedence. When no
// datasets are configured the sample datasets are placed under the final
// FolderPrefix.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Datasets = nil

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if len(cfg.Datasets) == 0 {
		cfg.Datasets = DefaultDatasets(cfg.FolderPrefix)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// ReportFormats lists the accepted values of ReportFormat.
var ReportFormats = []string{"text", "json", "csv", "parquet", "dual"}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if !contains(ReportFormats, c.ReportFormat) {
		return fmt.Errorf("report format must be one of %s", strings.Join(ReportFormats, ", "))
	}
	if c.StartYear > c.EndYear {
		return fmt.Errorf("start year (%d) cannot exceed end year (%d)", c.StartYear, c.EndYear)
	}
	if c.PeriodicCount < 0 {
		return fmt.Errorf("periodic count cannot be negative")
	}
	if c.PeriodicInterval < 0 {
		return fmt.Errorf("periodic interval cannot be negative")
	}
	if c.SeenCacheSize <= 0 {
		return fmt.Errorf("seen cache size must be positive")
	}
	for i, d := range c.Datasets {
		parsed, err := url.Parse(d.URL)
		if err != nil {
			return fmt.Errorf("dataset %d: invalid URL: %w", i, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("dataset %d: URL must include a host", i)
		}
		if _, err := models.ParseFormat(string(d.Format)); err != nil {
			return fmt.Errorf("dataset %d: %w", i, err)
		}
	}
	return nil
}

// FolderPath joins folder onto DataDir.
func (c *Config) FolderPath(folder string) string {
	return filepath.Join(c.DataDir, folder)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

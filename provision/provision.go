// Package provision creates the folder layout used by the fetch pipeline.
//
// Creation is non-destructive: existing directories and their contents are
// left untouched and reported with Created=false.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/aluiziolira/go-fetch-datasets/parser"
)

// ErrInvalidRange is returned when the start year is after the end year.
var ErrInvalidRange = errors.New("provision: start year after end year")

// PeriodicBaseName is the stem of folders created by CreatePeriodic.
const PeriodicBaseName = "folder"

// NameOptions re-exports the normalization rules accepted by CreateFromNames.
type NameOptions = parser.NameOptions

// Provisioner creates directories below a root.
type Provisioner struct {
	root   string
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewProvisioner returns a provisioner rooted at root. A nil logger falls back to slog.Default().
func NewProvisioner(root string, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		root:   root,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Root returns the directory all folders are created under.
func (p *Provisioner) Root() string {
	return p.root
}

// CreateRange creates one folder per year in [start, end].
func (p *Provisioner) CreateRange(start, end int) ([]models.FolderResult, error) {
	if start > end {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, start, end)
	}
	results := make([]models.FolderResult, 0, end-start+1)
	for year := start; year <= end; year++ {
		res, err := p.create(strconv.Itoa(year))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// CreateFromNames creates one folder per name after normalization.
func (p *Provisioner) CreateFromNames(names []string, opts NameOptions) ([]models.FolderResult, error) {
	results := make([]models.FolderResult, 0, len(names))
	for _, name := range names {
		res, err := p.create(parser.NormalizeName(name, opts))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// CreatePrefixed creates prefix+name for each name.
func (p *Provisioner) CreatePrefixed(names []string, prefix string) ([]models.FolderResult, error) {
	results := make([]models.FolderResult, 0, len(names))
	for _, name := range names {
		res, err := p.create(parser.PrefixName(prefix, name))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// CreatePeriodic creates folder_1..folder_count, waiting interval between
// creations. Cancelling ctx stops the loop; folders created so far are returned.
func (p *Provisioner) CreatePeriodic(ctx context.Context, count int, interval time.Duration) ([]models.FolderResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if count < 0 {
		return nil, fmt.Errorf("provision: negative folder count %d", count)
	}
	results := make([]models.FolderResult, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.create(fmt.Sprintf("%s_%d", PeriodicBaseName, i))
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if i < count && interval > 0 {
			if err := p.sleep(ctx, interval); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (p *Provisioner) create(name string) (models.FolderResult, error) {
	path := filepath.Join(p.root, name)
	if err := parser.ValidateFolderName(name); err != nil {
		return models.FolderResult{}, &models.FilesystemError{Path: path, Err: err}
	}

	created := true
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return models.FolderResult{}, &models.FilesystemError{Path: path, Err: fmt.Errorf("exists and is not a directory")}
		}
		created = false
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		p.logger.Error("create folder failed",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return models.FolderResult{}, &models.FilesystemError{Path: path, Err: err}
	}

	if created {
		p.logger.Info("created folder", slog.String("name", name), slog.String("path", path))
	} else {
		p.logger.Debug("folder exists", slog.String("name", name), slog.String("path", path))
	}
	return models.FolderResult{Name: name, Path: path, Created: created}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

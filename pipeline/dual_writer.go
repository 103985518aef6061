package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-fetch-datasets/models"
)

// DualWriter writes each report through two writers, e.g. text plus a JSON sidecar.
type DualWriter struct {
	primary   ReportWriter
	secondary ReportWriter
}

// NewDualWriter creates a writer that fans a report out to primary and secondary.
func NewDualWriter(primary, secondary ReportWriter) *DualWriter {
	return &DualWriter{
		primary:   primary,
		secondary: secondary,
	}
}

// Extension reports the primary writer's extension.
func (dw *DualWriter) Extension() string {
	return dw.primary.Extension()
}

// WriteReport writes through both writers. A failure in one does not prevent the other.
func (dw *DualWriter) WriteReport(folder, name string, report *models.Report) ([]string, error) {
	var (
		paths []string
		errs  []error
	)

	written, err := dw.primary.WriteReport(folder, name, report)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s report: %w", dw.primary.Extension(), err))
	}
	paths = append(paths, written...)

	written, err = dw.secondary.WriteReport(folder, name, report)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s report: %w", dw.secondary.Extension(), err))
	}
	paths = append(paths, written...)

	return paths, errors.Join(errs...)
}

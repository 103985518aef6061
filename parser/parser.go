package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDataset ensures a dataset carries everything the pipeline needs.
func ValidateDataset(d *models.Dataset) error {
	if d == nil {
		return fmt.Errorf("dataset is nil")
	}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("dataset %q: field %s failed %q", d.Name, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	if filepath.Base(d.Filename) != d.Filename {
		return fmt.Errorf("dataset %q: filename %q must not contain a directory", d.Name, d.Filename)
	}
	if filepath.Base(d.ReportName) != d.ReportName {
		return fmt.Errorf("dataset %q: report name %q must not contain a directory", d.Name, d.ReportName)
	}
	return nil
}

// NameOptions controls folder name normalization.
type NameOptions struct {
	Lowercase     bool
	ReplaceSpaces bool
}

// NormalizeName applies only the requested rules; with no options the name is
// returned unchanged.
func NormalizeName(name string, opts NameOptions) string {
	if opts.Lowercase {
		name = strings.ToLower(name)
	}
	if opts.ReplaceSpaces {
		name = strings.ReplaceAll(name, " ", "_")
	}
	return name
}

// PrefixName joins prefix and name without a separator.
func PrefixName(prefix, name string) string {
	return prefix + name
}

// ValidateFolderName rejects names that cannot be a single directory below the root.
func ValidateFolderName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("folder name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("folder name %q is reserved", name)
	case filepath.IsAbs(name):
		return fmt.Errorf("folder name %q must be relative", name)
	case strings.HasPrefix(filepath.Clean(name), ".."):
		return fmt.Errorf("folder name %q escapes the root", name)
	}
	return nil
}

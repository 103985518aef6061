package models

import (
	"errors"
	"fmt"
)

// ErrNoData indicates a file that holds nothing to summarize.
var ErrNoData = errors.New("no data")

// FetchError indicates a transport failure or non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Kind       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// WriteError indicates a filesystem failure while persisting a file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError indicates a filesystem failure while reading a persisted file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ParseError indicates malformed CSV, JSON or Excel content.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FilesystemError indicates a directory could not be provisioned.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("provision %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// KindOf returns a short label for the error kind, used for logs and counters.
func KindOf(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return "fetch"
	}
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return "write"
	}
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return "read"
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	var fsErr *FilesystemError
	if errors.As(err, &fsErr) {
		return "filesystem"
	}
	return "unknown"
}

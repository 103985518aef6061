package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "unknown"},
		{name: "fetch", err: &FetchError{URL: "http://example.test", Err: errors.New("boom")}, want: "fetch"},
		{name: "wrapped write", err: fmt.Errorf("step: %w", &WriteError{Path: "a", Err: os.ErrPermission}), want: "write"},
		{name: "read", err: &ReadError{Path: "a", Err: os.ErrNotExist}, want: "read"},
		{name: "parse", err: &ParseError{Path: "a", Format: FormatJSON, Err: errors.New("bad")}, want: "parse"},
		{name: "filesystem", err: &FilesystemError{Path: "a", Err: os.ErrPermission}, want: "filesystem"},
		{name: "plain", err: errors.New("other"), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	err := &ParseError{Path: "data.xls", Format: FormatExcel, Err: fmt.Errorf("open: %w", ErrNoData)}
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ParseError to unwrap to ErrNoData")
	}
	if !strings.Contains(err.Error(), "data.xls") {
		t.Fatalf("error %q should mention the path", err.Error())
	}

	fetchErr := &FetchError{URL: "http://example.test/x", StatusCode: 404, Err: errors.New("Not Found")}
	if !strings.Contains(fetchErr.Error(), "status 404") {
		t.Fatalf("error %q should mention the status", fetchErr.Error())
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"txt":   FormatText,
		"TEXT":  FormatText,
		".csv":  FormatCSV,
		"xls":   FormatExcel,
		"xlsx":  FormatExcel,
		"json ": FormatJSON,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestReportAddAndGet(t *testing.T) {
	r := NewReport(FormatCSV, "data.csv")
	r.Add("total_rows", 3)
	r.Add("mean", 2.5)
	r.Add("keys", []string{"a", "b"})

	if n, ok := r.Int("total_rows"); !ok || n != 3 {
		t.Fatalf("total_rows = %d (%v), want 3", n, ok)
	}
	if v, _ := r.Get("mean"); v != "2.5" {
		t.Fatalf("mean = %q, want 2.5", v)
	}
	if v, _ := r.Get("keys"); v != "a, b" {
		t.Fatalf("keys = %q, want \"a, b\"", v)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("missing metric should not be found")
	}
}

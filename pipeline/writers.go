package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/aluiziolira/go-fetch-datasets/models"
)

// Writer persists fetched payloads below a folder.
type Writer struct {
	logger *slog.Logger
}

// NewWriter returns a payload writer. A nil logger falls back to slog.Default().
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write persists payload at folder/filename according to its format and
// returns the written path. Existing files are replaced.
func (w *Writer) Write(folder, filename string, payload *models.Payload) (string, error) {
	path := filepath.Join(folder, filename)
	if payload == nil {
		return "", &models.WriteError{Path: path, Err: fmt.Errorf("payload is nil")}
	}

	switch payload.Format {
	case models.FormatText, models.FormatCSV:
		return w.WriteText(folder, filename, payload.Text())
	case models.FormatExcel:
		return w.WriteBytes(folder, filename, payload.Body)
	case models.FormatJSON:
		value := payload.Decoded
		if value == nil {
			decoded, err := decodeBody(payload.Body)
			if err != nil {
				return "", &models.ParseError{Path: payload.URL, Format: models.FormatJSON, Err: err}
			}
			value = decoded
		}
		return w.WriteJSON(folder, filename, value)
	default:
		return "", &models.WriteError{Path: path, Err: fmt.Errorf("unsupported format %q", payload.Format)}
	}
}

// WriteText writes text as UTF-8. Invalid byte sequences are replaced with U+FFFD.
func (w *Writer) WriteText(folder, filename, text string) (string, error) {
	if !utf8.ValidString(text) {
		text = string(bytes.ToValidUTF8([]byte(text), []byte("\uFFFD")))
	}
	return w.persist(folder, filename, []byte(text), "text")
}

// WriteBytes writes data byte-for-byte.
func (w *Writer) WriteBytes(folder, filename string, data []byte) (string, error) {
	return w.persist(folder, filename, data, "binary")
}

// WriteJSON serializes v with sorted object keys and 4-space indentation.
func (w *Writer) WriteJSON(folder, filename string, v any) (string, error) {
	data, err := encodeJSON(v)
	if err != nil {
		return "", &models.WriteError{Path: filepath.Join(folder, filename), Err: err}
	}
	return w.persist(folder, filename, data, "json")
}

func (w *Writer) persist(folder, filename string, data []byte, kind string) (string, error) {
	path := filepath.Join(folder, filename)
	if err := writeFileAtomic(path, data); err != nil {
		w.logger.Error("write failed",
			slog.String("path", path),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
		return "", &models.WriteError{Path: path, Err: err}
	}
	w.logger.Info("data saved",
		slog.String("path", path),
		slog.String("kind", kind),
		slog.Int("bytes", len(data)),
	)
	return path, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBody(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// writeFileAtomic replaces path with data through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// Package fetcher retrieves remote datasets with a single synchronous GET per call.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-fetch-datasets/config"
	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/gocolly/colly/v2"
)

// Fetcher wraps a colly collector configured for one-shot downloads.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	transport *contextTransport
	logger    *slog.Logger
	Metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, logger *slog.Logger) (*Fetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodySize),
		colly.IgnoreRobotsTxt(),
	)
	// Non-2xx responses are classified here rather than by colly.
	collector.ParseHTTPErrorResponse = true

	transport := newContextTransport(nil)
	if cfg.Timeout > 0 {
		collector.SetRequestTimeout(cfg.Timeout)
		transport.setBase(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		})
	}
	collector.WithTransport(transport)

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		transport: transport,
		logger:    logger,
		Metrics:   NewMetrics(),
	}, nil
}

// WithTransport replaces the HTTP transport used for every subsequent fetch.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport.setBase(rt)
}

// Fetch issues one GET for rawURL and shapes the body according to format.
// JSON bodies are decoded; a body that is not valid JSON yields a ParseError.
// Binary bodies are returned exactly as received. Cancelling ctx aborts the
// request in flight.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, format models.Format) (*models.Payload, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, newFetchError(rawURL, err, 0)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, newFetchError(rawURL, fmt.Errorf("parse url: %w", err), 0)
	}
	if parsed.Host == "" {
		return nil, newFetchError(rawURL, fmt.Errorf("url must include a host"), 0)
	}

	var (
		resp        *colly.Response
		errResp     *colly.Response
		visitErr    error
		contentType string
	)
	id, release := f.transport.bind(ctx)
	defer release()

	c := f.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set(contextHeader, id)
	})
	c.OnResponseHeaders(func(r *colly.Response) {
		contentType = r.Headers.Get("Content-Type")
		// colly transcodes bodies whose Content-Type names a charset.
		if format.Binary() {
			stripCharset(r.Headers)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		resp = r
	})
	c.OnError(func(r *colly.Response, err error) {
		errResp = r
		visitErr = err
	})

	f.Metrics.IncRequest(string(format))
	start := time.Now()
	if err := c.Visit(rawURL); err != nil && visitErr == nil {
		visitErr = err
	}
	f.Metrics.ObserveDuration(time.Since(start))

	if visitErr != nil {
		statusCode := 0
		if errResp != nil {
			statusCode = errResp.StatusCode
		}
		return nil, f.fail(rawURL, visitErr, statusCode)
	}
	if resp == nil {
		return nil, f.fail(rawURL, fmt.Errorf("no response received"), 0)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, f.fail(rawURL, nil, resp.StatusCode)
	}

	payload := &models.Payload{
		URL:         rawURL,
		Format:      format,
		ContentType: contentType,
		Body:        resp.Body,
		FetchedAt:   time.Now(),
	}
	f.Metrics.AddBytes(string(format), len(resp.Body))

	if format == models.FormatJSON {
		decoded, err := decodeJSON(resp.Body)
		if err != nil {
			f.Metrics.IncError("decode")
			return nil, &models.ParseError{Path: rawURL, Format: format, Err: err}
		}
		payload.Decoded = decoded
	}

	f.logger.Info("fetched payload",
		slog.String("url", rawURL),
		slog.String("format", string(format)),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
	)
	return payload, nil
}

func (f *Fetcher) fail(rawURL string, err error, statusCode int) error {
	fetchErr := newFetchError(rawURL, err, statusCode)
	f.Metrics.IncError(fetchErr.Kind)
	f.logger.Error("fetch failed",
		slog.String("url", rawURL),
		slog.String("category", fetchErr.Kind),
		slog.Int("status", statusCode),
		slog.Any("error", fetchErr.Err),
	)
	return fetchErr
}

// stripCharset drops the charset parameter from the Content-Type header.
func stripCharset(h *http.Header) {
	if h == nil {
		return
	}
	ct := h.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "charset") {
		return
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		h.Set("Content-Type", strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
		return
	}
	delete(params, "charset")
	h.Set("Content-Type", mime.FormatMediaType(mediaType, params))
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json: unexpected data after top-level value")
	}
	return v, nil
}

// Package backend provides docgate.Caller implementations: an HTTP
// forwarder speaking a JSON or MessagePack wire protocol, the matching
// server side, and an echo caller for local runs.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/broady/docgate"
)

// StatusError reports a non-2xx answer from a remote backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPCaller forwards requests to a remote backend. Each request is POSTed
// to <base URL>/<endpoint>.
type HTTPCaller struct {
	base   *url.URL
	client *http.Client
	codec  Codec
	logger *slog.Logger
}

// Option configures an HTTPCaller.
type Option func(*HTTPCaller)

// WithCodec sets the wire codec. Default is JSON.
func WithCodec(c Codec) Option {
	return func(h *HTTPCaller) { h.codec = c }
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPCaller) { h.client = c }
}

// WithTimeout bounds every backend call. Zero means no timeout beyond the
// request context.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPCaller) {
		c := *h.client
		c.Timeout = d
		h.client = &c
	}
}

// WithLogger sets the logger for transport diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTPCaller) { h.logger = l }
}

// NewHTTPCaller creates a caller for the backend at baseURL.
func NewHTTPCaller(baseURL string, opts ...Option) (*HTTPCaller, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: URL %q must use http or https", baseURL)
	}
	h := &HTTPCaller{
		base:   u,
		client: &http.Client{},
		codec:  JSON,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Call implements docgate.Caller.
func (h *HTTPCaller) Call(ctx context.Context, req *docgate.Request) (*docgate.Response, error) {
	var body bytes.Buffer
	if err := h.codec.Encode(&body, NewWireRequest(req)); err != nil {
		return nil, fmt.Errorf("backend: encode request %s: %w", req.ID(), err)
	}

	target := h.base.JoinPath(strings.Trim(req.Endpoint(), "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", h.codec.ContentType())
	httpReq.Header.Set("Accept", h.codec.ContentType())
	httpReq.Header.Set("X-Request-Id", req.ID())

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		h.logger.WarnContext(ctx, "backend returned error status",
			slog.String("endpoint", req.Endpoint()),
			slog.String("request_id", req.ID()),
			slog.Int("status", resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var wire WireResponse
	if err := h.codec.Decode(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("backend: decode response %s: %w", req.ID(), err)
	}
	return wire.Response()
}

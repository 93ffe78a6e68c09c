// Package transport provides the pooled HTTP client shared by all provider
// adapters.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lattiq/mailrelay/internal/core"
)

// maxResponseBody caps how much of an upstream body is retained.
const maxResponseBody = 1 << 20

// Config contains connection settings for HTTPTransport.
type Config struct {
	// Timeout is the maximum time to wait for a complete request.
	Timeout time.Duration

	// MaxConnsPerHost limits the number of connections per host.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain open.
	IdleConnTimeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string
}

// HTTPTransport implements core.Transport over net/http.
// It is safe for concurrent use.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// New creates an HTTPTransport with its own connection pool.
func New(cfg Config) *HTTPTransport {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxConnsPerHost > 0 {
		base.MaxConnsPerHost = cfg.MaxConnsPerHost
		base.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		base.IdleConnTimeout = cfg.IdleConnTimeout
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: base,
			Timeout:   cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

// NewWithClient creates an HTTPTransport around an existing client.
func NewWithClient(client *http.Client, userAgent string) *HTTPTransport {
	return &HTTPTransport{client: client, userAgent: userAgent}
}

// HTTPClient returns the underlying client so SDK-based adapters can share
// the same pool and timeout.
func (t *HTTPTransport) HTTPClient() *http.Client {
	return t.client
}

// Post sends body to destination and returns the response for any status.
// Only failures that produce no response are returned as errors, wrapped
// in *core.TransportError.
func (t *HTTPTransport) Post(ctx context.Context, destination string, body []byte, opts core.RequestOptions) (*core.UpstreamResponse, error) {
	target, err := Resolve(opts.BaseURL, destination)
	if err != nil {
		return nil, &core.TransportError{Destination: destination, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &core.TransportError{Destination: target, Err: err}
	}

	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if opts.BasicAuth != nil {
		req.SetBasicAuth(opts.BasicAuth.Username, opts.BasicAuth.Password)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &core.TransportError{Destination: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &core.TransportError{Destination: target, Err: fmt.Errorf("read response body: %w", err)}
	}

	return &core.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Header:     resp.Header,
	}, nil
}

// Resolve joins a relative destination onto baseURL. Absolute destinations
// are returned unchanged.
func Resolve(baseURL, destination string) (string, error) {
	dest, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination %q: %w", destination, err)
	}
	if dest.IsAbs() || baseURL == "" {
		if !dest.IsAbs() {
			return "", fmt.Errorf("destination %q is not absolute and no base URL is set", destination)
		}
		return dest.String(), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !base.IsAbs() {
		return "", fmt.Errorf("base URL %q is not absolute", baseURL)
	}

	return strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(dest.String(), "/"), nil
}

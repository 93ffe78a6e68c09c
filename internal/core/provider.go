package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider defines the interface for email service providers.
// Implementations translate an Email into a provider-specific request and
// issue it; they never interpret the upstream status themselves.
type Provider interface {
	// Send sends a single email using the provider's API.
	// A non-nil error means no upstream status is available (connection
	// error, timeout, signing failure). Any HTTP status, including 4xx and
	// 5xx, is reported through the returned UpstreamResponse.
	Send(ctx context.Context, email *Email) (*UpstreamResponse, error)

	// ValidateConfig validates the provider configuration.
	// Returns an error if the configuration is invalid or incomplete.
	ValidateConfig() error

	// Name returns the provider's name for identification and logging.
	Name() string
}

// Transport is the outbound capability shared by every provider adapter.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Post sends body to destination. A returned error is a transport-level
	// failure with no status code.
	Post(ctx context.Context, destination string, body []byte, opts RequestOptions) (*UpstreamResponse, error)
}

// RequestOptions carries per-request settings for Transport.Post.
type RequestOptions struct {
	// BaseURL is used to resolve a relative destination.
	BaseURL string

	// ContentType is sent as the Content-Type header when set.
	ContentType string

	// Headers contains additional request headers.
	Headers map[string]string

	// BasicAuth enables HTTP basic authentication when non-nil.
	BasicAuth *BasicAuth
}

// BasicAuth holds HTTP basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// UpstreamResponse is the response returned by a provider endpoint.
type UpstreamResponse struct {
	// StatusCode is the HTTP-style status code.
	StatusCode int

	// Body is the raw response body.
	Body string

	// Header contains the response headers, if any.
	Header http.Header
}

// TransportError is returned by transports when a request produced no
// response at all.
type TransportError struct {
	// Destination is the resolved URL of the failed request.
	Destination string

	// Err is the underlying network error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Destination == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("post %s: %v", e.Destination, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(e.Err, &te) {
		return te.Timeout()
	}
	return false
}

// ProviderSettings represents configuration settings for email providers.
type ProviderSettings map[string]string

// Get retrieves a configuration value by key.
func (ps ProviderSettings) Get(key string) string {
	return ps[key]
}

// GetDefault retrieves a configuration value, falling back to def when unset.
func (ps ProviderSettings) GetDefault(key, def string) string {
	if v := ps[key]; v != "" {
		return v
	}
	return def
}

// Set sets a configuration value.
func (ps ProviderSettings) Set(key, value string) {
	ps[key] = value
}

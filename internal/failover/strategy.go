// Package failover implements the primary/backup delivery strategy.
//
// A send tries the primary provider once. A 2xx response is a success and a
// 4xx response is reported to the caller as a payload problem; neither is
// retried. Anything else (5xx, other statuses, transport errors) moves the
// send to the backup provider, which is tried exactly once and classified
// the same way, except that its non-2xx, non-4xx outcomes are terminal.
//
// 429 is a 4xx and is therefore not retried on the backup.
package failover

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lattiq/mailrelay/internal/core"
)

// errNoResponse stands in for a provider that returned neither a response
// nor an error.
var errNoResponse = errors.New("provider returned no response")

// transportFailureStatus is reported when the backup produced no status.
const transportFailureStatus = 500

// Strategy sends through a primary provider and falls back to a backup.
// It holds no per-send state and is safe for concurrent use.
type Strategy struct {
	primary core.Provider
	backup  core.Provider
	logger  zerolog.Logger
}

// Option customises a Strategy.
type Option func(*Strategy)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Strategy) {
		s.logger = logger
	}
}

// New creates a failover strategy over primary and backup. A nil provider,
// including a typed nil pointer, yields core.ErrMissingProviders.
func New(primary, backup core.Provider, opts ...Option) (*Strategy, error) {
	if isNil(primary) || isNil(backup) {
		return nil, core.ErrMissingProviders
	}

	s := &Strategy{
		primary: primary,
		backup:  backup,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func isNil(p core.Provider) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Primary returns the primary provider.
func (s *Strategy) Primary() core.Provider {
	return s.primary
}

// Backup returns the backup provider.
func (s *Strategy) Backup() core.Provider {
	return s.backup
}

// Send delivers email and returns either a result or a *core.DeliveryError.
// core.ErrMissingEmail is returned, without contacting any provider, when
// email is nil.
func (s *Strategy) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	if email == nil {
		return nil, core.ErrMissingEmail
	}

	resp, err := s.primary.Send(ctx, email)
	if done, result, failure := classify(s.primary.Name(), resp, err); done {
		return result, failure
	}

	s.logger.Warn().
		Str("primary", s.primary.Name()).
		Str("backup", s.backup.Name()).
		Int("upstream_status", statusOf(resp, err)).
		AnErr("transport_error", err).
		Msg("primary provider failed, falling back to backup")

	trace.SpanFromContext(ctx).AddEvent("mailrelay.failover", trace.WithAttributes(
		attribute.String("mailrelay.failover.from", s.primary.Name()),
		attribute.String("mailrelay.failover.to", s.backup.Name()),
		attribute.Int("mailrelay.failover.upstream_status", statusOf(resp, err)),
	))

	resp, err = s.backup.Send(ctx, email)
	if done, result, failure := classify(s.backup.Name(), resp, err); done {
		return result, failure
	}

	return nil, transportFailure(s.backup.Name(), resp, err)
}

// classify applies the success and user-attention rules. It reports false when
// the outcome is neither, meaning the next provider (if any) should be tried.
func classify(provider string, resp *core.UpstreamResponse, err error) (bool, *core.SendResult, error) {
	if err != nil || resp == nil {
		return false, nil, nil
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, &core.SendResult{
			StatusCode:     resp.StatusCode,
			Message:        core.MessageSent,
			UpstreamStatus: resp.StatusCode,
			UpstreamBody:   resp.Body,
			Provider:       provider,
		}, nil
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		return true, nil, &core.DeliveryError{
			Kind:           core.FailureUserAttention,
			StatusCode:     resp.StatusCode,
			Message:        core.MessageUserAttention,
			UpstreamStatus: resp.StatusCode,
			UpstreamBody:   resp.Body,
			Provider:       provider,
		}
	default:
		return false, nil, nil
	}
}

// transportFailure builds the terminal failure after the backup failed.
func transportFailure(provider string, resp *core.UpstreamResponse, err error) *core.DeliveryError {
	if err == nil && resp != nil {
		return &core.DeliveryError{
			Kind:           core.FailureTransport,
			StatusCode:     resp.StatusCode,
			Message:        core.MessageTransport,
			UpstreamStatus: resp.StatusCode,
			UpstreamBody:   resp.Body,
			Provider:       provider,
		}
	}

	if err == nil {
		err = errNoResponse
	}
	return &core.DeliveryError{
		Kind:           core.FailureTransport,
		StatusCode:     transportFailureStatus,
		Message:        core.MessageTransport,
		UpstreamStatus: transportFailureStatus,
		UpstreamBody:   err.Error(),
		Provider:       provider,
		Cause:          err,
	}
}

func statusOf(resp *core.UpstreamResponse, err error) int {
	if err != nil || resp == nil {
		return 0
	}
	return resp.StatusCode
}

package mailrelay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/failover"
	"github.com/lattiq/mailrelay/internal/providers"
	"github.com/lattiq/mailrelay/internal/transport"
)

const instrumentationName = "github.com/lattiq/mailrelay"

// Type aliases to re-export core types for the public API.
// This allows users to access types like mailrelay.Email instead of core.Email,
// maintaining a clean public interface while keeping implementation details internal.
type (
	Provider         = core.Provider
	ProviderSettings = core.ProviderSettings
	Transport        = core.Transport
	RequestOptions   = core.RequestOptions
	BasicAuth        = core.BasicAuth
	UpstreamResponse = core.UpstreamResponse
	TransportError   = core.TransportError
	Email            = core.Email
	Fields           = core.Fields
	SendResult       = core.SendResult
	DeliveryError    = core.DeliveryError
	FailureKind      = core.FailureKind
	ValidationError  = core.ValidationError
)

// Failure kinds
const (
	FailureUserAttention = core.FailureUserAttention
	FailureTransport     = core.FailureTransport
)

// Outcome messages
const (
	MessageSent          = core.MessageSent
	MessageUserAttention = core.MessageUserAttention
	MessageTransport     = core.MessageTransport
)

// Email constructors
var (
	NewEmail     = core.NewEmail
	ValidAddress = core.ValidAddress
)

// Client implements the Mailer interface on top of a primary/backup
// failover strategy. All methods are safe for concurrent use.
type Client struct {
	strategy  *failover.Strategy
	transport *transport.HTTPTransport
	tracer    trace.Tracer
	logger    zerolog.Logger
	mu        sync.RWMutex
	closed    bool
}

// New creates a client whose providers are built from config.
// The client must be closed when no longer needed to release resources.
func New(config Config, opts ...Option) (*Client, error) {
	o := newClientOptions(config, opts)

	if err := o.Config.Validate(); err != nil {
		return nil, err
	}

	var tr *transport.HTTPTransport
	userAgent := GetVersionInfo().UserAgent()
	if o.httpClient != nil {
		tr = transport.NewWithClient(o.httpClient, userAgent)
	} else {
		tr = transport.New(transport.Config{
			Timeout:         o.Provider.Timeout,
			MaxConnsPerHost: o.Provider.MaxConnsPerHost,
			IdleConnTimeout: o.Provider.IdleConnTimeout,
			UserAgent:       userAgent,
		})
	}

	primary, err := createProvider(o.Provider.PrimaryType, o.Provider.Primary, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider: %w", err)
	}

	backup, err := createProvider(o.Provider.BackupType, o.Provider.Backup, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup provider: %w", err)
	}

	client, err := newClient(o, primary, backup)
	if err != nil {
		return nil, err
	}
	client.transport = tr
	return client, nil
}

// NewWithProviders creates a client over already constructed providers.
// Provider settings in the options are ignored.
func NewWithProviders(primary, backup Provider, opts ...Option) (*Client, error) {
	return newClient(newClientOptions(DefaultConfig(), opts), primary, backup)
}

func newClient(o *clientOptions, primary, backup Provider) (*Client, error) {
	strategy, err := failover.New(primary, backup, failover.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	var tp trace.TracerProvider = noop.NewTracerProvider()
	if o.Monitoring.Tracing.Enabled {
		tp = o.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
	}

	name := o.Monitoring.Tracing.ServiceName
	if name == "" {
		name = instrumentationName
	}

	return &Client{
		strategy: strategy,
		tracer:   tp.Tracer(name, trace.WithInstrumentationVersion(Version)),
		logger:   o.logger,
	}, nil
}

// Send delivers email through the primary provider, trying the backup once
// when the primary fails without rejecting the payload. It returns either a
// result or an error; delivery failures are *DeliveryError.
func (c *Client) Send(ctx context.Context, email *Email) (*SendResult, error) {
	ctx, span := c.tracer.Start(ctx, "mailrelay.Client.Send")
	defer span.End()

	// Check if client is closed
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		span.RecordError(ErrClientClosed)
		span.SetStatus(codes.Error, ErrClientClosed.Error())
		return nil, ErrClientClosed
	}
	c.mu.RUnlock()

	primary, backup := c.Providers()
	sendID := uuid.NewString()
	log := c.logger.With().Str("send_id", sendID).Logger()

	span.SetAttributes(
		attribute.String("mailrelay.send_id", sendID),
		attribute.String("mailrelay.primary", primary),
		attribute.String("mailrelay.backup", backup),
	)
	if email != nil {
		span.SetAttributes(attribute.Int("mailrelay.recipients", email.TotalRecipients()))
	}

	result, err := c.strategy.Send(ctx, email)
	if err != nil {
		span.RecordError(err)

		var de *DeliveryError
		if errors.As(err, &de) {
			span.SetAttributes(
				attribute.String("mailrelay.provider", de.Provider),
				attribute.String("mailrelay.failure", de.Kind.String()),
				attribute.Int("mailrelay.status", de.StatusCode),
			)
			event := log.Error()
			if de.Kind == FailureUserAttention {
				event = log.Warn()
			}
			event.Str("provider", de.Provider).
				Str("failure", de.Kind.String()).
				Int("upstream_status", de.UpstreamStatus).
				Msg(de.Message)
		}

		span.SetStatus(codes.Error, "send failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("mailrelay.provider", result.Provider),
		attribute.Int("mailrelay.status", result.StatusCode),
	)
	span.SetStatus(codes.Ok, "email sent successfully")

	log.Info().
		Str("provider", result.Provider).
		Int("upstream_status", result.UpstreamStatus).
		Int("recipients", email.TotalRecipients()).
		Msg(result.Message)

	return result, nil
}

// Providers returns the names of the primary and backup providers.
func (c *Client) Providers() (primary, backup string) {
	return c.strategy.Primary().Name(), c.strategy.Backup().Name()
}

// Close closes the client and releases idle connections.
// Subsequent sends fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.transport != nil {
		c.transport.HTTPClient().CloseIdleConnections()
	}
	return nil
}

// createProvider creates a provider instance based on the provider type.
func createProvider(providerType ProviderType, settings ProviderSettings, tr Transport) (Provider, error) {
	if !providerType.Valid() {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return providers.New(string(providerType), settings, tr)
}

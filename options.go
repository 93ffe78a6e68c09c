package mailrelay

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// clientOptions is the configuration a Client is built from.
type clientOptions struct {
	Config

	logger         zerolog.Logger
	tracerProvider trace.TracerProvider
	httpClient     *http.Client
}

// Option is a functional option for configuring the relay client.
type Option func(*clientOptions)

func newClientOptions(config Config, opts []Option) *clientOptions {
	o := &clientOptions{
		Config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithPrimary sets the primary provider type and its settings.
func WithPrimary(providerType ProviderType, settings ProviderSettings) Option {
	return func(o *clientOptions) {
		o.Provider.PrimaryType = providerType
		o.Provider.Primary = settings
	}
}

// WithBackup sets the backup provider type and its settings.
func WithBackup(providerType ProviderType, settings ProviderSettings) Option {
	return func(o *clientOptions) {
		o.Provider.BackupType = providerType
		o.Provider.Backup = settings
	}
}

// WithTimeout sets the per-request provider timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.Provider.Timeout = timeout
	}
}

// WithMaxConnsPerHost sets the maximum number of connections per host.
func WithMaxConnsPerHost(maxConns int) Option {
	return func(o *clientOptions) {
		o.Provider.MaxConnsPerHost = maxConns
	}
}

// WithHTTPClient replaces the pooled HTTP client shared by all providers.
// Timeout and connection settings from the configuration are then ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithLogger sets the logger used for send outcomes and fallbacks.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider and enables tracing.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) {
		o.Monitoring.Tracing.Enabled = true
		o.tracerProvider = tp
	}
}

// WithoutTracing disables distributed tracing.
func WithoutTracing() Option {
	return func(o *clientOptions) {
		o.Monitoring.Tracing.Enabled = false
	}
}

// WithSendGrid configures SendGrid as the primary provider.
func WithSendGrid(apiKey string) Option {
	return WithPrimary(ProviderSendGrid, ProviderSettings{
		"api_key": apiKey,
	})
}

// WithMailgunBackup configures the Mailgun messages endpoint as the backup provider.
func WithMailgunBackup(apiKey, domain string) Option {
	return WithBackup(ProviderMailgun, ProviderSettings{
		"api_key": apiKey,
		"domain":  domain,
	})
}

// WithMailgunEUBackup configures the Mailgun EU region as the backup provider.
func WithMailgunEUBackup(apiKey, domain string) Option {
	return WithBackup(ProviderMailgun, ProviderSettings{
		"api_key":  apiKey,
		"domain":   domain,
		"base_url": "https://api.eu.mailgun.net",
	})
}

// WithAWSSESBackup configures AWS SES with explicit credentials as the backup provider.
func WithAWSSESBackup(region, accessKey, secretKey string) Option {
	return WithBackup(ProviderAWSSES, ProviderSettings{
		"region":     region,
		"access_key": accessKey,
		"secret_key": secretKey,
	})
}

package mailrelay

import (
	"time"

	"github.com/lattiq/mailrelay/internal/providers"
)

// Config holds the complete relay configuration.
type Config struct {
	// Provider contains provider-specific configuration.
	Provider ProviderConfig `yaml:"provider"`

	// Server contains HTTP endpoint configuration.
	Server ServerConfig `yaml:"server"`

	// Monitoring contains observability configuration.
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ProviderConfig contains provider-specific settings.
type ProviderConfig struct {
	// PrimaryType is the provider tried first.
	PrimaryType ProviderType `yaml:"primary_type"`

	// Primary contains settings for the primary provider.
	Primary ProviderSettings `yaml:"primary"`

	// BackupType is the provider tried once when the primary fails.
	BackupType ProviderType `yaml:"backup_type"`

	// Backup contains settings for the backup provider.
	Backup ProviderSettings `yaml:"backup"`

	// Timeout is the maximum time to wait for a single provider request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxConnsPerHost limits the number of connections per host for HTTP-based providers.
	MaxConnsPerHost int `yaml:"max_conns_per_host"`

	// IdleConnTimeout is the maximum time an idle connection will remain open.
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderType represents the type of email provider.
type ProviderType string

const (
	// ProviderAWSSES represents Amazon Simple Email Service.
	ProviderAWSSES ProviderType = providers.TypeAWSSES

	// ProviderSendGrid represents the SendGrid email service.
	ProviderSendGrid ProviderType = providers.TypeSendGrid

	// ProviderMailgun represents the Mailgun messages endpoint.
	ProviderMailgun ProviderType = providers.TypeMailgun

	// ProviderMailgunAPI represents Mailgun through its Go SDK.
	ProviderMailgunAPI ProviderType = providers.TypeMailgunAPI
)

// String returns the string representation of the provider type.
func (pt ProviderType) String() string {
	return string(pt)
}

// Valid checks if the provider type is supported.
func (pt ProviderType) Valid() bool {
	switch pt {
	case ProviderAWSSES, ProviderSendGrid, ProviderMailgun, ProviderMailgunAPI:
		return true
	default:
		return false
	}
}

// ServerConfig contains HTTP endpoint configuration.
type ServerConfig struct {
	// Address is the listen address.
	Address string `yaml:"address"`

	// RateLimitPerMinute is the per-client request budget; 0 disables it.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// MaxBodyBytes caps the request body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MonitoringConfig contains observability configuration.
type MonitoringConfig struct {
	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled indicates whether spans are recorded through the global
	// OpenTelemetry tracer provider.
	Enabled bool `yaml:"enabled"`

	// ServiceName is the instrumentation name used for the tracer.
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the log format (json, console).
	Format string `yaml:"format"`

	// Output is where to write logs (stdout, stderr, or file path).
	Output string `yaml:"output"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			PrimaryType:     ProviderSendGrid,
			Primary:         ProviderSettings{},
			BackupType:      ProviderMailgun,
			Backup:          ProviderSettings{},
			Timeout:         30 * time.Second,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Server: ServerConfig{
			Address:            ":9999",
			RateLimitPerMinute: 0,
			MaxBodyBytes:       1 << 20,
			ShutdownTimeout:    10 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Tracing: TracingConfig{
				Enabled:     true,
				ServiceName: "mailrelay",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if !c.Provider.PrimaryType.Valid() {
		return &ValidationError{
			Field:   "provider.primary_type",
			Message: "invalid or unsupported provider type: " + string(c.Provider.PrimaryType),
			Err:     ErrInvalidConfiguration,
		}
	}

	if !c.Provider.BackupType.Valid() {
		return &ValidationError{
			Field:   "provider.backup_type",
			Message: "invalid or unsupported provider type: " + string(c.Provider.BackupType),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Provider.Timeout <= 0 {
		return &ValidationError{
			Field:   "provider.timeout",
			Message: "timeout must be greater than 0",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Provider.MaxConnsPerHost < 0 {
		return &ValidationError{
			Field:   "provider.max_conns_per_host",
			Message: "max connections per host must not be negative",
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Server.RateLimitPerMinute < 0 {
		return &ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: "rate limit must not be negative",
			Err:     ErrInvalidConfiguration,
		}
	}

	return nil
}

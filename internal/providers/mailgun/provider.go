// Package mailgun sends mail through the Mailgun messages endpoint using a
// form-encoded request over the shared transport.
package mailgun

import (
	"context"
	"net/url"
	"strings"

	"github.com/lattiq/mailrelay/internal/core"
)

// DefaultBaseURL is the Mailgun US region API base.
const DefaultBaseURL = "https://api.mailgun.net"

// Provider implements the core.Provider interface for Mailgun.
// CC and BCC recipients are not forwarded.
type Provider struct {
	transport core.Transport
	config    core.ProviderSettings
	endpoint  string
	baseURL   string
}

// NewProvider creates a new Mailgun provider. The send endpoint is taken from
// the "endpoint" setting or derived from "domain".
func NewProvider(settings core.ProviderSettings, transport core.Transport) (*Provider, error) {
	if settings.Get("api_key") == "" {
		return nil, core.NewValidationError("api_key", "Mailgun API key is required")
	}
	if settings.Get("endpoint") == "" && settings.Get("domain") == "" {
		return nil, core.NewValidationError("domain", "Mailgun domain or endpoint is required")
	}
	if transport == nil {
		return nil, core.NewValidationError("transport", "transport is required")
	}

	baseURL := settings.Get("base_url")
	endpoint := settings.Get("endpoint")
	if endpoint == "" {
		endpoint = "/v3/" + settings.Get("domain") + "/messages"
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
	}

	return &Provider{
		transport: transport,
		config:    settings,
		endpoint:  endpoint,
		baseURL:   baseURL,
	}, nil
}

// Send posts email to Mailgun and returns the upstream response unchanged.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.UpstreamResponse, error) {
	if email == nil {
		return nil, core.ErrMissingEmail
	}

	return p.transport.Post(ctx, p.endpoint, Payload(email), core.RequestOptions{
		BaseURL:     p.baseURL,
		ContentType: "application/x-www-form-urlencoded",
		BasicAuth: &core.BasicAuth{
			Username: p.config.GetDefault("api_user", "api"),
			Password: p.config.Get("api_key"),
		},
	})
}

// Payload renders the form body for email.
func Payload(email *core.Email) []byte {
	form := url.Values{}
	form.Set("from", email.From())
	form.Set("to", strings.Join(email.To(), ","))
	form.Set("subject", email.Subject())
	form.Set("text", email.Body())
	return []byte(form.Encode())
}

// ValidateConfig validates the Mailgun provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("api_key") == "" {
		return core.NewValidationError("api_key", "Mailgun API key is required")
	}
	if p.config.Get("endpoint") == "" && p.config.Get("domain") == "" {
		return core.NewValidationError("domain", "Mailgun domain or endpoint is required")
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "MailGun"
}

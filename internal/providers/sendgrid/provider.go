// Package sendgrid sends mail through the SendGrid v3 mail/send API.
package sendgrid

import (
	"context"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lattiq/mailrelay/internal/core"
)

// DefaultEndpoint is the SendGrid v3 send endpoint.
const DefaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Provider implements the core.Provider interface for SendGrid.
// CC and BCC recipients are not forwarded.
type Provider struct {
	transport core.Transport
	config    core.ProviderSettings
	endpoint  string
	baseURL   string
}

// NewProvider creates a new SendGrid provider.
func NewProvider(settings core.ProviderSettings, transport core.Transport) (*Provider, error) {
	if settings.Get("api_key") == "" {
		return nil, core.NewValidationError("api_key", "SendGrid API key is required")
	}
	if transport == nil {
		return nil, core.NewValidationError("transport", "transport is required")
	}

	return &Provider{
		transport: transport,
		config:    settings,
		endpoint:  settings.GetDefault("endpoint", DefaultEndpoint),
		baseURL:   settings.Get("base_url"),
	}, nil
}

// Send posts email to SendGrid and returns the upstream response unchanged.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.UpstreamResponse, error) {
	if email == nil {
		return nil, core.ErrMissingEmail
	}

	return p.transport.Post(ctx, p.endpoint, Payload(email), core.RequestOptions{
		BaseURL:     p.baseURL,
		ContentType: "application/json",
		Headers: map[string]string{
			"Authorization": "Bearer " + p.config.Get("api_key"),
		},
	})
}

// Payload renders the v3 request body for email. Every address is sent with
// itself as the display name.
func Payload(email *core.Email) []byte {
	from := mail.NewEmail(email.From(), email.From())

	personalization := mail.NewPersonalization()
	for _, to := range email.To() {
		personalization.AddTos(mail.NewEmail(to, to))
	}
	personalization.Subject = email.Subject()

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.SetReplyTo(mail.NewEmail(email.From(), email.From()))
	message.AddPersonalizations(personalization)
	message.AddContent(mail.NewContent("text/plain", email.Body()))

	return mail.GetRequestBody(message)
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("api_key") == "" {
		return core.NewValidationError("api_key", "SendGrid API key is required")
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "SendGrid"
}

// Package mailgunapi sends mail through Mailgun using the official Go SDK.
package mailgunapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/lattiq/mailrelay/internal/core"
)

// Provider implements the core.Provider interface on top of mailgun-go.
// CC and BCC recipients are forwarded.
type Provider struct {
	client *mailgun.MailgunImpl
	config core.ProviderSettings
}

// NewProvider creates a new Mailgun SDK provider. When transport exposes an
// HTTPClient the SDK uses it.
func NewProvider(settings core.ProviderSettings, transport core.Transport) (*Provider, error) {
	apiKey := settings.Get("api_key")
	if apiKey == "" {
		return nil, core.NewValidationError("api_key", "Mailgun API key is required")
	}

	domain := settings.Get("domain")
	if domain == "" {
		return nil, core.NewValidationError("domain", "Mailgun domain is required")
	}

	client := mailgun.NewMailgun(domain, apiKey)

	// EU customers and test servers override the API base
	if baseURL := settings.Get("base_url"); baseURL != "" {
		client.SetAPIBase(apiBase(baseURL))
	}
	if hc, ok := transport.(interface{ HTTPClient() *http.Client }); ok {
		client.SetClient(hc.HTTPClient())
	}

	return &Provider{
		client: client,
		config: settings,
	}, nil
}

// apiBase accepts a base URL with or without the /v3 suffix the SDK expects,
// so the same setting serves both Mailgun adapters.
func apiBase(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v3") {
		baseURL += "/v3"
	}
	return baseURL
}

// Send sends email through the Mailgun SDK. Unexpected HTTP statuses are
// reported as an UpstreamResponse; other errors are returned as is.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.UpstreamResponse, error) {
	if email == nil {
		return nil, core.ErrMissingEmail
	}

	message := p.client.NewMessage(email.From(), email.Subject(), email.Body(), email.To()...)
	for _, cc := range email.Cc() {
		message.AddCC(cc)
	}
	for _, bcc := range email.Bcc() {
		message.AddBCC(bcc)
	}

	// Send returns 3 values: mes, id, err
	mes, id, err := p.client.Send(ctx, message)
	if err != nil {
		var unexpected *mailgun.UnexpectedResponseError
		if errors.As(err, &unexpected) {
			return &core.UpstreamResponse{
				StatusCode: unexpected.Actual,
				Body:       string(unexpected.Data),
			}, nil
		}
		return nil, err
	}

	body, err := json.Marshal(struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}{id, mes})
	if err != nil {
		return nil, err
	}

	return &core.UpstreamResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}, nil
}

// ValidateConfig validates the Mailgun provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("api_key") == "" {
		return core.NewValidationError("api_key", "Mailgun API key is required")
	}
	if p.config.Get("domain") == "" {
		return core.NewValidationError("domain", "Mailgun domain is required")
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "Mailgun API"
}

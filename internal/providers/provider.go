// Package providers builds provider adapters by type name.
package providers

import (
	"fmt"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/providers/mailgun"
	"github.com/lattiq/mailrelay/internal/providers/mailgunapi"
	"github.com/lattiq/mailrelay/internal/providers/sendgrid"
	"github.com/lattiq/mailrelay/internal/providers/ses"
)

// Supported provider types.
const (
	TypeSendGrid   = "sendgrid"
	TypeMailgun    = "mailgun"
	TypeAWSSES     = "aws_ses"
	TypeMailgunAPI = "mailgun_api"
)

// Types lists every supported provider type.
func Types() []string {
	return []string{TypeSendGrid, TypeMailgun, TypeAWSSES, TypeMailgunAPI}
}

// New creates the adapter registered under kind.
func New(kind string, settings core.ProviderSettings, transport core.Transport) (core.Provider, error) {
	if settings == nil {
		settings = core.ProviderSettings{}
	}

	switch kind {
	case TypeSendGrid:
		return NewSendGridProvider(settings, transport)
	case TypeMailgun:
		return NewMailgunProvider(settings, transport)
	case TypeAWSSES:
		return NewSESProvider(settings, transport)
	case TypeMailgunAPI:
		return NewMailgunAPIProvider(settings, transport)
	default:
		return nil, core.NewValidationErrorWithValue("type", fmt.Sprintf("unsupported provider type %q", kind), kind)
	}
}

// NewSESProvider creates a new AWS SES provider.
func NewSESProvider(settings core.ProviderSettings, transport core.Transport) (core.Provider, error) {
	p, err := ses.NewProvider(settings, transport)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewSendGridProvider creates a new SendGrid provider.
func NewSendGridProvider(settings core.ProviderSettings, transport core.Transport) (core.Provider, error) {
	p, err := sendgrid.NewProvider(settings, transport)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewMailgunProvider creates a new Mailgun provider.
func NewMailgunProvider(settings core.ProviderSettings, transport core.Transport) (core.Provider, error) {
	p, err := mailgun.NewProvider(settings, transport)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewMailgunAPIProvider creates a new Mailgun SDK provider.
func NewMailgunAPIProvider(settings core.ProviderSettings, transport core.Transport) (core.Provider, error) {
	p, err := mailgunapi.NewProvider(settings, transport)
	if err != nil {
		return nil, err
	}
	return p, nil
}

package mailrelay

import (
	"context"
)

// Public interfaces for the relay library
type (
	// Mailer defines the core email sending interface.
	// All methods are safe for concurrent use.
	Mailer interface {
		// Send delivers a single email through the primary provider,
		// falling back to the backup once when the primary fails.
		// A failed delivery is reported as a *DeliveryError.
		Send(ctx context.Context, email *Email) (*SendResult, error)

		// Close releases any resources held by the relay client.
		// After calling Close, Send returns ErrClientClosed.
		Close() error
	}
)

var _ Mailer = (*Client)(nil)

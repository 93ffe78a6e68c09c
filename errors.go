package mailrelay

import (
	"errors"

	"github.com/lattiq/mailrelay/internal/core"
)

// Predefined sentinel errors for common cases.
var (
	// ErrInvalidConfiguration indicates invalid configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrMissingFrom indicates the sender address is absent or empty.
	ErrMissingFrom = core.ErrMissingFrom

	// ErrMissingTo indicates the recipient list is absent or empty.
	ErrMissingTo = core.ErrMissingTo

	// ErrInvalidAddress indicates an address failed syntactic validation.
	ErrInvalidAddress = core.ErrInvalidAddress

	// ErrInvalidType indicates an email field holds a non-string value.
	ErrInvalidType = core.ErrInvalidType

	// ErrMissingEmail indicates Send was called with a nil email.
	ErrMissingEmail = core.ErrMissingEmail

	// ErrMissingProviders indicates a client was built without a primary
	// and/or backup provider.
	ErrMissingProviders = core.ErrMissingProviders
)

// Error helpers re-exported from the core package.
var (
	NewValidationError          = core.NewValidationError
	NewValidationErrorWithValue = core.NewValidationErrorWithValue
	IsUserAttention             = core.IsUserAttention
	IsTransport                 = core.IsTransport
)

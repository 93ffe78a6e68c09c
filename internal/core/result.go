package core

// Fixed outcome messages.
const (
	MessageSent          = "Email sent successfully"
	MessageUserAttention = "payload needs review"
	MessageTransport     = "failed to send email, review provider response"
)

// SendResult is the successful outcome of a send.
type SendResult struct {
	// StatusCode is the status to report to the caller.
	StatusCode int

	// Message is a fixed, human readable summary.
	Message string

	// UpstreamStatus is the status returned by the provider that accepted the email.
	UpstreamStatus int

	// UpstreamBody is the body returned by the provider that accepted the email.
	UpstreamBody string

	// Provider is the name of the provider that accepted the email.
	Provider string
}

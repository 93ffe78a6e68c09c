package core

import (
	"encoding/json"
)

// Fields holds the raw, decoded fields of an inbound send request.
// Address fields are comma-joined strings; subject and body must be strings
// when present.
type Fields map[string]any

// Email represents a validated email message. It can only be obtained from
// NewEmail and is read-only afterwards.
type Email struct {
	from    string
	to      []string
	cc      []string
	bcc     []string
	subject string
	body    string
}

// NewEmail validates and normalizes fields into an Email.
// Validation stops at the first violation: from, to, then the syntax of
// from, to, cc and bcc in that order, then the types of subject and body.
func NewEmail(fields Fields) (*Email, error) {
	if isBlank(fields["from"]) {
		return nil, &ValidationError{Field: "from", Message: "missing sender address", Err: ErrMissingFrom}
	}
	if isBlank(fields["to"]) {
		return nil, &ValidationError{Field: "to", Message: "missing recipient address", Err: ErrMissingTo}
	}

	from, ok := fields["from"].(string)
	if !ok {
		return nil, newInvalidTypeError("from", fields["from"])
	}
	from, err := parseAddress("from", from)
	if err != nil {
		return nil, err
	}

	to, err := parseAddressField(fields, "to")
	if err != nil {
		return nil, err
	}

	cc, err := parseAddressField(fields, "cc")
	if err != nil {
		return nil, err
	}

	bcc, err := parseAddressField(fields, "bcc")
	if err != nil {
		return nil, err
	}

	subject, err := stringField(fields, "subject")
	if err != nil {
		return nil, err
	}

	body, err := stringField(fields, "body")
	if err != nil {
		return nil, err
	}

	return &Email{
		from:    from,
		to:      to,
		cc:      cc,
		bcc:     bcc,
		subject: subject,
		body:    body,
	}, nil
}

// From returns the sender address.
func (e *Email) From() string {
	return e.from
}

// To returns a copy of the primary recipients.
func (e *Email) To() []string {
	return append([]string(nil), e.to...)
}

// Cc returns a copy of the carbon copy recipients.
func (e *Email) Cc() []string {
	return append([]string{}, e.cc...)
}

// Bcc returns a copy of the blind carbon copy recipients.
func (e *Email) Bcc() []string {
	return append([]string{}, e.bcc...)
}

// Subject returns the subject, empty when none was given.
func (e *Email) Subject() string {
	return e.subject
}

// Body returns the plain text body, empty when none was given.
func (e *Email) Body() string {
	return e.body
}

// TotalRecipients returns the total number of recipients (To + CC + BCC).
func (e *Email) TotalRecipients() int {
	return len(e.to) + len(e.cc) + len(e.bcc)
}

// MarshalJSON renders the email in the inbound request shape, with address
// lists as arrays.
func (e *Email) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Cc      []string `json:"cc"`
		Bcc     []string `json:"bcc"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
	}{e.from, e.to, e.Cc(), e.Bcc(), e.subject, e.body})
}

// parseAddressField parses an optional comma-separated address field.
// Absent or empty fields yield an empty list.
func parseAddressField(fields Fields, field string) ([]string, error) {
	raw := fields[field]
	if isBlank(raw) {
		return []string{}, nil
	}
	list, ok := raw.(string)
	if !ok {
		return nil, newInvalidTypeError(field, raw)
	}
	return parseAddressList(field, list)
}

// stringField returns an optional string field, empty when absent.
// An explicit null is present and therefore must be a string.
func stringField(fields Fields, field string) (string, error) {
	raw, present := fields[field]
	if !present {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", newInvalidTypeError(field, raw)
	}
	return s, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

package mailgunapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/transport"
)

func testEmail(t *testing.T) *core.Email {
	t.Helper()
	email, err := core.NewEmail(core.Fields{
		"from":    "bob@example.com",
		"to":      "sam@example.com, jane@example.com",
		"cc":      "joe@example.com",
		"subject": "Test email",
		"body":    "Hi there guys!",
	})
	require.NoError(t, err)
	return email
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(core.ProviderSettings{
		"api_key":  "key-123",
		"domain":   "mg.example.com",
		"base_url": srv.URL + "/v3",
	}, transport.New(transport.Config{Timeout: 5 * time.Second}))
	require.NoError(t, err)
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	t.Parallel()

	var ve *core.ValidationError

	_, err := NewProvider(core.ProviderSettings{"domain": "mg.example.com"}, nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "api_key", ve.Field)

	_, err = NewProvider(core.ProviderSettings{"api_key": "key"}, nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "domain", ve.Field)
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	var (
		gotMethod string
		gotUser   string
		gotPass   string
	)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"<20190101.1@mg.example.com>","message":"Queued. Thank you."}`)
	})

	resp, err := p.Send(context.Background(), testEmail(t))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"id":"<20190101.1@mg.example.com>","message":"Queued. Thank you."}`, resp.Body)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "api", gotUser)
	assert.Equal(t, "key-123", gotPass)
}

func TestSend_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{400, 500} {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"rejected"}`)
		})

		resp, err := p.Send(context.Background(), testEmail(t))
		require.NoError(t, err, "status %d", status)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, `{"message":"rejected"}`, resp.Body)
	}
}

func TestSend_ConnectionError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, err := NewProvider(core.ProviderSettings{
		"api_key":  "key",
		"domain":   "mg.example.com",
		"base_url": base + "/v3",
	}, transport.New(transport.Config{Timeout: time.Second}))
	require.NoError(t, err)

	resp, err := p.Send(context.Background(), testEmail(t))
	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestSend_MissingEmail(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(core.ProviderSettings{"api_key": "key", "domain": "mg.example.com"}, nil)
	require.NoError(t, err)

	_, err = p.Send(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrMissingEmail)
	assert.Equal(t, "Mailgun API", p.Name())
	assert.NoError(t, p.ValidateConfig())
}

func TestAPIBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://api.eu.mailgun.net/v3", apiBase("https://api.eu.mailgun.net"))
	assert.Equal(t, "https://api.eu.mailgun.net/v3", apiBase("https://api.eu.mailgun.net/"))
	assert.Equal(t, "https://api.eu.mailgun.net/v3", apiBase("https://api.eu.mailgun.net/v3"))
}

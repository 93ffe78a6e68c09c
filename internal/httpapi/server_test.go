package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiq/mailrelay/internal/core"
)

type fakeSender struct {
	mu     sync.Mutex
	result *core.SendResult
	err    error
	calls  int
	last   *core.Email
}

func (f *fakeSender) Send(_ context.Context, email *core.Email) (*core.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = email
	return f.result, f.err
}

const validBody = `{"from":"bob@example.com","to":"sam@example.com, jane@example.com","cc":"joe@example.com","subject":"Test email","body":"Hi there guys!"}`

func newTestServer(t *testing.T, cfg Config, sender Sender, opts ...Option) *Server {
	t.Helper()
	s, err := New(cfg, sender, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func post(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestNew_RequiresSender(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{result: &core.SendResult{
		StatusCode:     202,
		Message:        core.MessageSent,
		UpstreamStatus: 202,
		UpstreamBody:   `{"id":"<1@mg>","message":"Queued"}`,
		Provider:       "MailGun",
	}}
	s := newTestServer(t, DefaultConfig(), sender)

	rec, body := post(t, s, validBody)
	assert.Equal(t, 202, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Email sent successfully", body["message"])
	assert.Equal(t, map[string]any{
		"status": 202.0,
		"data":   map[string]any{"id": "<1@mg>", "message": "Queued"},
	}, body["upstream_response"])

	require.Equal(t, 1, sender.calls)
	assert.Equal(t, []string{"sam@example.com", "jane@example.com"}, sender.last.To())
	assert.Equal(t, []string{"joe@example.com"}, sender.last.Cc())
}

func TestSend_PlainUpstreamBody(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{result: &core.SendResult{StatusCode: 200, Message: core.MessageSent, UpstreamStatus: 200}}
	s := newTestServer(t, DefaultConfig(), sender)

	_, body := post(t, s, validBody)
	assert.Equal(t, map[string]any{"status": 200.0, "data": ""}, body["upstream_response"])
}

func TestSend_DeliveryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		upstream map[string]any
	}{
		{
			name: "user attention",
			err: &core.DeliveryError{
				Kind: core.FailureUserAttention, StatusCode: 400, Message: core.MessageUserAttention,
				UpstreamStatus: 400, UpstreamBody: `{"errors":[{"field":"personalizations.0.to"}]}`, Provider: "SendGrid",
			},
			status:  400,
			message: "payload needs review",
			upstream: map[string]any{
				"status": 400.0,
				"data":   map[string]any{"errors": []any{map[string]any{"field": "personalizations.0.to"}}},
			},
		},
		{
			name: "transport",
			err: &core.DeliveryError{
				Kind: core.FailureTransport, StatusCode: 500, Message: core.MessageTransport,
				UpstreamStatus: 500, UpstreamBody: "Network error", Provider: "MailGun",
				Cause: errors.New("Network error"),
			},
			status:   500,
			message:  "failed to send email, review provider response",
			upstream: map[string]any{"status": 500.0, "data": "Network error"},
		},
		{
			name: "backup not modified",
			err: &core.DeliveryError{
				Kind: core.FailureTransport, StatusCode: 304, Message: core.MessageTransport,
				UpstreamStatus: 304, Provider: "MailGun",
			},
			status:   http.StatusBadGateway,
			message:  "failed to send email, review provider response",
			upstream: map[string]any{"status": 304.0, "data": ""},
		},
		{
			name: "backup informational",
			err: &core.DeliveryError{
				Kind: core.FailureTransport, StatusCode: 102, Message: core.MessageTransport,
				UpstreamStatus: 102, UpstreamBody: "processing", Provider: "MailGun",
			},
			status:   http.StatusBadGateway,
			message:  "failed to send email, review provider response",
			upstream: map[string]any{"status": 102.0, "data": "processing"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, DefaultConfig(), &fakeSender{err: tt.err})
			rec, body := post(t, s, validBody)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.upstream, body["upstream_response"])
		})
	}
}

func TestSend_UnknownError(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, DefaultConfig(), &fakeSender{err: errors.New("client closed")})
	rec, body := post(t, s, validBody)
	assert.Equal(t, 500, rec.Code)
	assert.Equal(t, "internal error", body["error"])
}

func TestSend_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed", `{"from":`, ""},
		{"not an object", `["bob@example.com"]`, ""},
		{"missing from", `{"to":"sam@example.com"}`, "from"},
		{"null body", `null`, "from"},
		{"missing to", `{"from":"bob@example.com"}`, "to"},
		{"invalid to", `{"from":"bob@example.com","to":"sam@example"}`, "to"},
		{"trailing comma", `{"from":"bob@example.com","to":"sam@example.com,"}`, "to"},
		{"invalid cc", `{"from":"bob@example.com","to":"sam@example.com","cc":"joe@example"}`, "cc"},
		{"subject type", `{"from":"bob@example.com","to":"sam@example.com","subject":{}}`, "subject"},
		{"body type", `{"from":"bob@example.com","to":"sam@example.com","body":42}`, "body"},
		{"null subject", `{"from":"bob@example.com","to":"sam@example.com","subject":null}`, "subject"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			s := newTestServer(t, DefaultConfig(), sender)

			rec, body := post(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				assert.Equal(t, tt.field, body["field"])
			}
			assert.Zero(t, sender.calls)
		})
	}
}

func TestSend_BodyTooLarge(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 32
	sender := &fakeSender{}
	s := newTestServer(t, cfg, sender)

	rec, _ := post(t, s, validBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, sender.calls)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := newTestServer(t, cfg, &fakeSender{})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, 200, do("10.0.0.1"))
	assert.Equal(t, 200, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, 200, do("10.0.0.2"))
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, DefaultConfig(), &fakeSender{})
	assert.Nil(t, s.limiter)

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, 200, rec.Code)
	}
}

func TestHealthAndVersion(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, DefaultConfig(), &fakeSender{},
		WithVersion(map[string]string{"version": "1.2.3"}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/send", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var mu sync.Mutex
	w := &lockedWriter{mu: &mu, buf: &buf}
	s := newTestServer(t, DefaultConfig(), &fakeSender{}, WithLogger(zerolog.New(w)))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"request_id":`)
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s, err := New(DefaultConfig(), &fakeSender{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	client := &http.Client{Timeout: 5 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + l.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func TestResponseStatus(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{
		100: http.StatusBadGateway,
		200: 200,
		202: 202,
		301: http.StatusBadGateway,
		304: http.StatusBadGateway,
		400: 400,
		429: 429,
		503: 503,
		0:   http.StatusBadGateway,
		600: http.StatusBadGateway,
	} {
		assert.Equal(t, want, responseStatus(in), "status %d", in)
	}
}

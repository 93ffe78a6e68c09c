package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiq/mailrelay/internal/core"
)

func TestPost_ReturnsResponseForAnyStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{200, 202, 400, 429, 500, 503} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Message-Id", "abc")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"status":"x"}`)
		}))

		tr := New(Config{Timeout: 5 * time.Second})
		resp, err := tr.Post(context.Background(), srv.URL+"/send", []byte("payload"), core.RequestOptions{})
		srv.Close()

		require.NoError(t, err, "status %d", status)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, `{"status":"x"}`, resp.Body)
		assert.Equal(t, "abc", resp.Header.Get("X-Message-Id"))
	}
}

func TestPost_SendsRequest(t *testing.T) {
	t.Parallel()

	var (
		gotPath, gotBody, gotType, gotAgent, gotAuth, gotCustom string
		gotUser, gotPass                                       string
		gotBasic                                               bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotBody = string(body)
		gotType = r.Header.Get("Content-Type")
		gotAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Custom")
		gotUser, gotPass, gotBasic = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(Config{Timeout: 5 * time.Second, UserAgent: "mailrelay/test"})

	_, err := tr.Post(context.Background(), "/v3/messages", []byte("a=b"), core.RequestOptions{
		BaseURL:     srv.URL + "/",
		ContentType: "application/x-www-form-urlencoded",
		Headers:     map[string]string{"X-Custom": "1"},
		BasicAuth:   &core.BasicAuth{Username: "api", Password: "key"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v3/messages", gotPath)
	assert.Equal(t, "a=b", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, "mailrelay/test", gotAgent)
	assert.NotEmpty(t, gotAuth)
	assert.Equal(t, "1", gotCustom)
	assert.True(t, gotBasic)
	assert.Equal(t, "api", gotUser)
	assert.Equal(t, "key", gotPass)

	_, err = tr.Post(context.Background(), srv.URL+"/bearer", nil, core.RequestOptions{
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", gotAuth)
	assert.Equal(t, "/bearer", gotPath)
}

func TestPost_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := New(Config{Timeout: 50 * time.Millisecond})
	resp, err := tr.Post(context.Background(), srv.URL, nil, core.RequestOptions{})
	assert.Nil(t, resp)
	require.Error(t, err)

	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout())
	assert.Equal(t, srv.URL, te.Destination)
}

func TestPost_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := New(Config{Timeout: time.Second})
	resp, err := tr.Post(context.Background(), addr, nil, core.RequestOptions{})
	assert.Nil(t, resp)

	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Timeout())
	assert.Contains(t, te.Error(), "post "+addr)
}

func TestPost_InvalidDestination(t *testing.T) {
	t.Parallel()

	tr := New(Config{})
	_, err := tr.Post(context.Background(), "/relative", nil, core.RequestOptions{})

	var te *core.TransportError
	require.ErrorAs(t, err, &te)
}

func TestPost_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(Config{})
	_, err := tr.Post(ctx, srv.URL, nil, core.RequestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, dest, want string
		wantErr          bool
	}{
		{"", "https://api.sendgrid.com/v3/mail/send", "https://api.sendgrid.com/v3/mail/send", false},
		{"https://ignored.example.com", "https://sendgrid/api", "https://sendgrid/api", false},
		{"https://api.mailgun.net", "/v3/example.com/messages", "https://api.mailgun.net/v3/example.com/messages", false},
		{"https://api.mailgun.net/", "v3/messages", "https://api.mailgun.net/v3/messages", false},
		{"", "/relative", "", true},
		{"not-absolute", "/relative", "", true},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.base, tt.dest)
		if tt.wantErr {
			assert.Error(t, err, "%s + %s", tt.base, tt.dest)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestHTTPClientShared(t *testing.T) {
	t.Parallel()

	client := &http.Client{Timeout: time.Second}
	tr := NewWithClient(client, "")
	assert.Same(t, client, tr.HTTPClient())
}

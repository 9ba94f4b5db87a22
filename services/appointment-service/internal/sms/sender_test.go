package sms

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSenderPostsMessage(t *testing.T) {
	var got message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, " secret ")
	require.NoError(t, s.Send(context.Background(), "+5511999998888", "oi"))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, message{To: "+5511999998888", Body: "oi"}, got)
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, "").Send(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewPicksSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, "sms-log", New("  ", "", logger).ProviderID())
	assert.Equal(t, "sms-webhook", New("http://sms.local/send", "", logger).ProviderID())
	assert.NoError(t, New("", "", logger).Send(context.Background(), "x", "y"))
}

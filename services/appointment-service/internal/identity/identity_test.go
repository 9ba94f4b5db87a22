package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/libs/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	signer, err := NewHS256Signer(testSecret)
	require.NoError(t, err)
	return NewService(signer, discardLogger(), cfg)
}

func TestHS256SignerRejectsShortSecret(t *testing.T) {
	_, err := NewHS256Signer("short")
	assert.Error(t, err)
}

func TestSignInAnonymously(t *testing.T) {
	svc := newTestService(t, ServiceConfig{AppID: "pubike"})

	first, err := svc.SignInAnonymously(context.Background())
	require.NoError(t, err)
	second, err := svc.SignInAnonymously(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, first.UID)
	assert.NotEqual(t, first.UID, second.UID)
	assert.Equal(t, auth.ProviderAnonymous, first.Provider)

	claims, err := auth.ParseAndVerifyHS256(first.IDToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, first.UID, claims.Sub)
	assert.Equal(t, "pubike", claims.AppID)
}

func TestSignInWithTokenKeepsSubject(t *testing.T) {
	svc := newTestService(t, ServiceConfig{AppID: "pubike"})

	preIssued, err := auth.SignHS256(auth.Claims{Sub: "host-user-42", Iat: time.Now().Unix()}, testSecret)
	require.NoError(t, err)

	id, err := svc.SignInWithToken(context.Background(), preIssued)
	require.NoError(t, err)
	assert.Equal(t, "host-user-42", id.UID)
	assert.Equal(t, auth.ProviderCustom, id.Provider)

	// The issued ID token is itself accepted on resume.
	again, err := svc.SignInWithToken(context.Background(), id.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "host-user-42", again.UID)
}

func TestSignInWithTokenExpiresOnServiceClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, ServiceConfig{AppID: "pubike", TokenTTL: time.Hour, Clock: clock})

	id, err := svc.SignInAnonymously(context.Background())
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	resumed, err := svc.SignInWithToken(context.Background(), id.IDToken)
	require.NoError(t, err)
	assert.Equal(t, id.UID, resumed.UID)

	clock.Advance(2 * time.Minute)
	_, err = svc.SignInWithToken(context.Background(), id.IDToken)
	assert.True(t, IsInvalidToken(err))
}

func TestSignInWithTokenRejects(t *testing.T) {
	svc := newTestService(t, ServiceConfig{AppID: "pubike"})

	_, err := svc.SignInWithToken(context.Background(), "")
	assert.True(t, IsInvalidToken(err))

	_, err = svc.SignInWithToken(context.Background(), "not.a.token")
	assert.True(t, IsInvalidToken(err))

	other, err := auth.SignHS256(auth.Claims{Sub: "u", AppID: "other-app"}, testSecret)
	require.NoError(t, err)
	_, err = svc.SignInWithToken(context.Background(), other)
	assert.True(t, IsInvalidToken(err))
}

func TestSignInWithExternalRS256Token(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	issuer := newRS256Signer(key, "host-kid")

	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(issuer.JWKS())
	}))
	defer jwksSrv.Close()

	svc := newTestService(t, ServiceConfig{JWKS: auth.NewJWKSClient(jwksSrv.URL, time.Minute)})

	token, err := issuer.Sign(auth.Claims{Sub: "external-user", Iat: time.Now().Unix()})
	require.NoError(t, err)

	id, err := svc.SignInWithToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "external-user", id.UID)
}

func TestRS256SignerFromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	signer, err := NewRS256Signer(pemBytes, "")
	require.NoError(t, err)

	token, err := signer.Sign(auth.Claims{Sub: "u-1"})
	require.NoError(t, err)
	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Sub)
	require.Len(t, signer.JWKS().Keys, 1)

	_, err = NewRS256Signer([]byte("garbage"), "")
	assert.Error(t, err)
}

func TestClientAgainstHandler(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	signer, err := NewHS256Signer(testSecret)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(svc, signer, discardLogger()).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL + "/")

	anon, err := client.SignInAnonymously(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, anon.UID)
	assert.NotEmpty(t, anon.IDToken)

	resumed, err := client.SignInWithToken(context.Background(), anon.IDToken)
	require.NoError(t, err)
	assert.Equal(t, anon.UID, resumed.UID)

	_, err = client.SignInWithToken(context.Background(), "bad.token.value")
	assert.True(t, IsInvalidToken(err))
}

func TestHandlerMethodAndBodyChecks(t *testing.T) {
	h := NewHandler(newTestService(t, ServiceConfig{}), nil, discardLogger())

	rw := httptest.NewRecorder()
	h.Anonymous(rw, httptest.NewRequest(http.MethodGet, "/api/v1/auth/anonymous", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rw.Code)

	rw = httptest.NewRecorder()
	h.Token(rw, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil))
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw = httptest.NewRecorder()
	h.JWKS(rw, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

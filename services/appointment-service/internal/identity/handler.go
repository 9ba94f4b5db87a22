package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pubike/pubike/libs/httpx"
)

// Handler exposes an Authenticator over HTTP.
type Handler struct {
	auth   Authenticator
	jwks   func() any
	logger *slog.Logger
}

func NewHandler(a Authenticator, signer TokenSigner, logger *slog.Logger) *Handler {
	h := &Handler{auth: a, logger: logger}
	if signer != nil {
		h.jwks = func() any { return signer.JWKS() }
	}
	return h
}

type tokenSignInRequest struct {
	Token string `json:"token"`
}

// Register mounts the sign-in routes, wrapped in mw, and the JWKS document.
func (h *Handler) Register(mux *http.ServeMux, mw ...httpx.Middleware) {
	mux.Handle("/api/v1/auth/anonymous", httpx.Chain(http.HandlerFunc(h.Anonymous), mw...))
	mux.Handle("/api/v1/auth/token", httpx.Chain(http.HandlerFunc(h.Token), mw...))
	mux.HandleFunc("/.well-known/jwks.json", h.JWKS)
}

func (h *Handler) Anonymous(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := h.auth.SignInAnonymously(r.Context())
	if err != nil {
		h.logger.Error("anonymous sign-in failed", "err", err)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req tokenSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}
	id, err := h.auth.SignInWithToken(r.Context(), req.Token)
	if err != nil {
		if IsInvalidToken(err) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		h.logger.Error("token sign-in failed", "err", err)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.jwks == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.jwks())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

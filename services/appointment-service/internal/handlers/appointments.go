package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/libs/httpx"
	"github.com/pubike/pubike/services/appointment-service/internal/appointment"
	"github.com/pubike/pubike/services/appointment-service/internal/page"
	"github.com/pubike/pubike/services/appointment-service/internal/session"
)

// SessionCookie carries the ID token issued on page load.
const SessionCookie = "pubike_session"

type AppointmentHandler struct {
	sessions     *session.Initializer
	submitter    *appointment.Submitter
	clock        clockwork.Clock
	logger       *slog.Logger
	cookieTTL    time.Duration
	secureCookie bool
}

type Options struct {
	Clock        clockwork.Clock
	CookieTTL    time.Duration
	SecureCookie bool
}

func NewAppointmentHandler(sessions *session.Initializer, submitter *appointment.Submitter, logger *slog.Logger, opts Options) *AppointmentHandler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = 24 * time.Hour
	}
	return &AppointmentHandler{
		sessions:     sessions,
		submitter:    submitter,
		clock:        opts.Clock,
		logger:       logger,
		cookieTTL:    opts.CookieTTL,
		secureCookie: opts.SecureCookie,
	}
}

// Register mounts the form page and the JSON API; mw wraps the write paths.
// mw must not put a deadline on the request: a store write, once issued, runs
// to completion and its outcome is rendered.
func (h *AppointmentHandler) Register(mux *http.ServeMux, mw ...httpx.Middleware) {
	mux.Handle("/", httpx.Chain(http.HandlerFunc(h.Page), mw...))
	mux.Handle("/api/v1/public/appointments", httpx.Chain(http.HandlerFunc(h.Create), mw...))
}

// Page serves the form on GET and handles its submission on POST.
func (h *AppointmentHandler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.showForm(w, r)
	case http.MethodPost:
		h.submitForm(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) showForm(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Initialize(r.Context())
	p := page.New(h.submitter, h.clock)
	p.Load(err)
	if sess.Ready() {
		h.setSessionCookie(w, sess.IDToken)
	}
	h.render(w, http.StatusOK, p, sess.Ready())
}

func (h *AppointmentHandler) submitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := h.formSession(w, r)

	p := page.New(h.submitter, h.clock)
	p.SetFields(appointment.FormInput{
		ServiceType:   r.PostForm.Get("serviceType"),
		UserName:      r.PostForm.Get("userName"),
		ContactInfo:   r.PostForm.Get("contactInfo"),
		PreferredDate: r.PostForm.Get("preferredDate"),
		PreferredTime: r.PostForm.Get("preferredTime"),
		Notes:         r.PostForm.Get("notes"),
	})
	_, err := p.Submit(r.Context(), sess)
	h.render(w, statusFor(err), p, sess.Ready())
}

// formSession resumes the session named by the cookie. A visitor without a
// cookie, or whose token was rejected, is signed in afresh and gets a new one.
func (h *AppointmentHandler) formSession(w http.ResponseWriter, r *http.Request) *session.Context {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		sess, err := h.sessions.Resume(r.Context(), c.Value)
		if err == nil {
			return sess
		}
		if !errors.Is(err, session.ErrAuthFailed) {
			h.logger.Warn("session resume failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
			return sess
		}
		h.logger.Info("session token rejected; signing in again", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	}
	sess, err := h.sessions.Initialize(r.Context())
	if err != nil {
		h.logger.Warn("session initialization failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	}
	if sess.Ready() {
		h.setSessionCookie(w, sess.IDToken)
	}
	return sess
}

func (h *AppointmentHandler) render(w http.ResponseWriter, status int, p *page.Page, ready bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(w, p.View(ready)); err != nil {
		h.logger.Error("render page failed", "err", err)
	}
}

func (h *AppointmentHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type createResponse struct {
	AppointmentID    string `json:"appointmentId"`
	ConfirmationCode string `json:"confirmationCode"`
	Message          string `json:"message"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// Create is the JSON form of the page submission. The caller authenticates with
// the ID token from a sign-in as a bearer token.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}
	sess, err := h.sessions.Resume(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrNoConfig) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: page.MsgNoConfig})
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: page.MsgAuthFailed})
		return
	}

	var in appointment.FormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	conf, err := h.submitter.Submit(r.Context(), sess, in)
	if err != nil {
		resp := errorResponse{}
		var verr *appointment.ValidationError
		switch {
		case errors.As(err, &verr):
			resp.Error = page.MsgValidation
			resp.Missing = verr.Missing
			resp.Invalid = verr.Invalid
		case errors.Is(err, appointment.ErrNotReady):
			resp.Error = page.MsgNotReady
		default:
			resp.Error = page.MsgWriteError
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		AppointmentID:    conf.AppointmentID,
		ConfirmationCode: conf.Code,
		Message:          page.SuccessMessage(conf.Code),
	})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, appointment.ErrNotReady):
		return http.StatusServiceUnavailable
	case appointment.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, page.ErrBusy):
		return http.StatusConflict
	case appointment.IsWrite(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

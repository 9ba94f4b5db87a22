// Package session establishes the per-visit context a submission runs in: who
// the visitor is and which store their requests are written to.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pubike/pubike/services/appointment-service/internal/identity"
	"github.com/pubike/pubike/services/appointment-service/internal/model"
	"github.com/pubike/pubike/services/appointment-service/internal/storage"
)

var (
	ErrNoConfig   = errors.New("session: store configuration not found")
	ErrAuthFailed = errors.New("session: authentication failed")
)

type Config struct {
	AppID string
	// InitialAuthToken is the optional token pre-issued by the hosting environment.
	InitialAuthToken string
}

// Context is the outcome of one initialization. Store is nil whenever the
// session is not ready for submissions.
type Context struct {
	AppID    string
	UserID   string
	IDToken  string
	Provider string
	Store    storage.DocumentStore
}

func (c *Context) Ready() bool {
	return c != nil && c.Store != nil
}

// Initializer runs the sign-in handshake against a fixed authenticator and store.
type Initializer struct {
	cfg     Config
	auth    identity.Authenticator
	store   storage.DocumentStore
	logger  *slog.Logger
	metrics *Metrics
}

func NewInitializer(cfg Config, a identity.Authenticator, store storage.DocumentStore, logger *slog.Logger, metrics *Metrics) *Initializer {
	if cfg.AppID == "" {
		cfg.AppID = model.DefaultAppID
	}
	return &Initializer{cfg: cfg, auth: a, store: store, logger: logger, metrics: metrics}
}

// Initialize performs exactly one sign-in: with the configured initial token when
// present, anonymously otherwise. It always returns a non-nil Context; on error
// the Context is not ready.
func (i *Initializer) Initialize(ctx context.Context) (*Context, error) {
	if i.cfg.InitialAuthToken != "" {
		return i.signIn(ctx, "token", func(ctx context.Context) (identity.Identity, error) {
			return i.auth.SignInWithToken(ctx, i.cfg.InitialAuthToken)
		})
	}
	return i.signIn(ctx, "anonymous", i.auth.SignInAnonymously)
}

// Resume rebuilds the context of an earlier initialization from the ID token
// it issued.
func (i *Initializer) Resume(ctx context.Context, idToken string) (*Context, error) {
	if idToken == "" {
		return &Context{AppID: i.cfg.AppID}, fmt.Errorf("%w: missing id token", ErrAuthFailed)
	}
	return i.signIn(ctx, "resume", func(ctx context.Context) (identity.Identity, error) {
		return i.auth.SignInWithToken(ctx, idToken)
	})
}

func (i *Initializer) signIn(ctx context.Context, method string, call func(context.Context) (identity.Identity, error)) (*Context, error) {
	sess := &Context{AppID: i.cfg.AppID}
	if i.store == nil {
		i.logger.Error("store configuration not found")
		i.metrics.observe(method, "no_config")
		return sess, ErrNoConfig
	}

	id, err := call(ctx)
	if err != nil {
		i.logger.Warn("session sign-in failed", "method", method, "err", err)
		i.metrics.observe(method, "auth_failed")
		return sess, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	sess.UserID = id.UID
	if sess.UserID == "" {
		sess.UserID = "anon-" + uuid.NewString()
	}
	sess.IDToken = id.IDToken
	sess.Provider = id.Provider
	sess.Store = i.store
	i.metrics.observe(method, "ok")
	i.logger.Debug("session initialized", "method", method, "user_id", sess.UserID)
	return sess, nil
}

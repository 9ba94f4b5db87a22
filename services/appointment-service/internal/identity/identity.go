// Package identity signs visitors in, either anonymously or with a token
// pre-issued by the hosting environment, and issues the ID tokens that tie
// later submissions to that sign-in.
package identity

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("identity: invalid token")

// Identity is the result of one sign-in call.
type Identity struct {
	UID      string `json:"uid"`
	IDToken  string `json:"idToken"`
	Provider string `json:"provider"`
}

type Authenticator interface {
	SignInAnonymously(ctx context.Context) (Identity, error)
	SignInWithToken(ctx context.Context, token string) (Identity, error)
}

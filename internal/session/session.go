// Package session resolves the caller's identity from the auth provider's
// access token.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// CookieName is the cookie the auth provider stores the access token in.
const CookieName = "sb-access-token"

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("no session")

// Identity is the authenticated user as the auth provider knows it.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Resolver turns an access token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// TokenFromRequest returns the access token from the session cookie or the
// Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// FromRequest resolves the session of r.
func FromRequest(ctx context.Context, res Resolver, r *http.Request) (*Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrNoSession
	}
	return res.Resolve(ctx, token)
}

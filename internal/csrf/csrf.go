// Package csrf implements the double-submit cookie check guarding every
// state-changing request. The token lives only in the browser cookie; the
// server keeps no token state.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/roorq/storefront/pkg/errors"
)

const (
	// CookieName is the cookie carrying the token.
	CookieName = "roorq_csrf"
	// HeaderName carries the token on bodiless and multipart requests.
	HeaderName = "X-CSRF-Token"
	// FormField carries the token in multipart forms.
	FormField = "csrf"
	// MaxAge is the cookie lifetime.
	MaxAge = time.Hour
	// MinTokenLength is the shortest token a client may submit.
	MinTokenLength = 16

	tokenBytes = 32
)

// InvalidTokenMessage is the only message a CSRF failure returns.
const InvalidTokenMessage = "Invalid CSRF token."

// ErrInvalidToken is returned by Check and Validate on any mismatch.
var ErrInvalidToken = errors.New("invalid csrf token")

var rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roorq_csrf_rejections_total",
	Help: "Mutating requests rejected by the CSRF gate.",
}, []string{"reason"})

// Gate issues and validates CSRF tokens.
type Gate struct {
	forceSecure bool
	random      func([]byte) (int, error)
}

// NewGate returns a Gate. forceSecure marks the cookie Secure even on plain
// HTTP, for deployments behind a TLS-terminating proxy that strips
// X-Forwarded-Proto.
func NewGate(forceSecure bool) *Gate {
	return &Gate{forceSecure: forceSecure, random: rand.Read}
}

// IssueOrReuse returns the request's token when the cookie holds a well-formed
// one, otherwise generates a new token and sets the cookie on w.
func (g *Gate) IssueOrReuse(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && wellFormed(c.Value) {
		return c.Value, nil
	}

	buf := make([]byte, tokenBytes)
	if _, err := g.random(buf); err != nil {
		return "", apperrors.Internal(err)
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(MaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   g.forceSecure || servedOverTLS(r),
	})
	return token, nil
}

// Validate compares submitted with the request's cookie. It returns a 403
// AppError carrying InvalidTokenMessage on failure.
func (g *Gate) Validate(r *http.Request, submitted string) error {
	cookie := ""
	if c, err := r.Cookie(CookieName); err == nil {
		cookie = c.Value
	}
	if err := Check(cookie, submitted); err != nil {
		return &apperrors.AppError{
			Code:    "INVALID_CSRF_TOKEN",
			Message: InvalidTokenMessage,
			Status:  http.StatusForbidden,
			Err:     err,
		}
	}
	return nil
}

// Check is the pure comparison behind Validate: ok only when both values are
// non-empty and equal.
func Check(cookie, submitted string) error {
	switch {
	case cookie == "":
		rejections.WithLabelValues("missing_cookie").Inc()
		return ErrInvalidToken
	case submitted == "":
		rejections.WithLabelValues("missing_token").Inc()
		return ErrInvalidToken
	case subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) != 1:
		rejections.WithLabelValues("mismatch").Inc()
		return ErrInvalidToken
	}
	return nil
}

// TokenFromRequest reads the token of a request without a JSON body: the
// X-CSRF-Token header, then the csrf form field.
func TokenFromRequest(r *http.Request) string {
	if v := r.Header.Get(HeaderName); v != "" {
		return v
	}
	if r.MultipartForm != nil {
		if vals := r.MultipartForm.Value[FormField]; len(vals) > 0 {
			return vals[0]
		}
	}
	if r.PostForm != nil {
		return r.PostForm.Get(FormField)
	}
	return ""
}

func wellFormed(token string) bool {
	if len(token) < 2*MinTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

func servedOverTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

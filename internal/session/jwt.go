package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims issued by the auth provider.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 access tokens locally with the provider's
// signing secret.
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTResolver creates a resolver. Empty issuer or audience skips that
// check.
func NewJWTResolver(secret, issuer, audience string) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Resolve parses and validates token.
func (j *JWTResolver) Resolve(_ context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid access token claims", ErrNoSession)
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs an access token the way the auth provider does. It is used by
// local tooling and tests.
func (j *JWTResolver) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

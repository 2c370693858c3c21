package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/roorq/storefront/pkg/httpclient"
)

// RemoteResolver asks the auth provider who owns a token
// (GET {base}/auth/v1/user).
type RemoteResolver struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	apiKey  string
}

// NewRemoteResolver creates a resolver calling the provider at baseURL.
func NewRemoteResolver(client *httpclient.CircuitBreakerClient, baseURL, apiKey string) *RemoteResolver {
	return &RemoteResolver{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Resolve returns ErrNoSession when the provider rejects the token and a
// wrapped provider error when it cannot be reached.
func (rr *RemoteResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	if rr.apiKey != "" {
		header.Set("apikey", rr.apiKey)
	}

	resp, err := rr.client.Get(ctx, rr.baseURL+"/auth/v1/user", header)
	if err != nil {
		return nil, fmt.Errorf("call auth provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrNoSession
	case resp.StatusCode != http.StatusOK:
		return nil, httpclient.ParseResponseError(resp, "auth-provider")
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("decode auth provider user: %w", err)
	}
	if id.UserID == "" {
		return nil, ErrNoSession
	}
	return &id, nil
}

// Package auth resolves client API keys. Keys arrive either as a bearer
// token (the OpenAI convention) or in the x-api-key header (the
// Anthropic convention); both map to the same stored keys.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
)

// Authenticator validates client keys against the configuration store.
type Authenticator struct {
	store  store.Store
	logger *slog.Logger
}

// NewAuthenticator creates an authenticator backed by the store.
func NewAuthenticator(s store.Store) *Authenticator {
	return &Authenticator{
		store:  s,
		logger: slog.Default().With("component", "auth"),
	}
}

// ExtractKey pulls the client API key from a request, trying the bearer
// token first and the x-api-key header second. It returns "" when
// neither is present.
func ExtractKey(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("x-api-key"))
}

// Validate resolves a raw key to its identity. Unknown and disabled keys
// fail with *relay.AuthError; the error message never echoes the key.
func (a *Authenticator) Validate(ctx context.Context, rawKey string) (*store.APIKeyInfo, error) {
	if rawKey == "" {
		return nil, &relay.AuthError{Message: "missing API key"}
	}

	info, err := a.store.GetAPIKey(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, &relay.AuthError{Message: "invalid API key"}
	}
	if !info.Enabled {
		return nil, &relay.AuthError{Message: "API key disabled"}
	}
	return info, nil
}

// Package providers defines the boundary to remote OAuth providers: consent
// URL construction, authorization code exchange, token refresh, revocation,
// and discovery of the organizations a token can reach.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// Token is a plaintext token set returned by a provider. It exists only in
// process memory during active use; persistence always goes through the
// vault first.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds until the access token expires
}

// Organization is one external organization the authorizing user can bind.
type Organization struct {
	ID   string
	Name string
}

// Provider is the adapter to one remote OAuth provider. Implementations must
// not retry internally (retry policy belongs to the caller) and must never
// log token material.
type Provider interface {
	// Name returns the provider name (e.g. "xero", "quickbooks").
	Name() string

	// AuthorizationURL builds the consent URL for the given state and S256
	// code challenge.
	AuthorizationURL(state, codeChallenge string) string

	// ExchangeCode exchanges an authorization code plus PKCE verifier for a
	// token set.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error)

	// Refresh obtains a new token set using a refresh token. The refresh
	// token is accepted decrypted, in memory only.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// Revoke invalidates a token at the provider. Callers treat failures as
	// advisory; local state transitions never depend on revocation success.
	Revoke(ctx context.Context, accessToken string) error

	// Organizations lists the external organizations reachable with the
	// access token.
	Organizations(ctx context.Context, accessToken string) ([]Organization, error)
}

// Error wraps any failure talking to the remote provider: network errors,
// 4xx/5xx responses, and malformed payloads all surface through it.
type Error struct {
	Op         string // which provider operation failed
	StatusCode int    // zero when the call never produced a response
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsProviderError reports whether err originated at the provider boundary.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

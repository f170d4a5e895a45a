// Package mock provides a scriptable implementation of the Provider
// interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/lukgber-glitch/ledgerlink/providers"
)

// Provider is a mock providers.Provider. Override the *Func fields to script
// behavior; call counts are tracked per method.
type Provider struct {
	NameFunc             func() string
	AuthorizationURLFunc func(state, codeChallenge string) string
	ExchangeCodeFunc     func(ctx context.Context, code, codeVerifier string) (*providers.Token, error)
	RefreshFunc          func(ctx context.Context, refreshToken string) (*providers.Token, error)
	RevokeFunc           func(ctx context.Context, accessToken string) error
	OrganizationsFunc    func(ctx context.Context, accessToken string) ([]providers.Organization, error)

	mu         sync.RWMutex
	callCounts map[string]int
}

var _ providers.Provider = (*Provider)(nil)

// New creates a mock provider with working defaults: every exchange yields a
// fresh token pair and a single organization.
func New() *Provider {
	return &Provider{
		callCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		AuthorizationURLFunc: func(state, codeChallenge string) string {
			return fmt.Sprintf("https://provider.example.com/authorize?state=%s&code_challenge=%s&code_challenge_method=S256", state, codeChallenge)
		},
		ExchangeCodeFunc: func(_ context.Context, code, _ string) (*providers.Token, error) {
			return &providers.Token{
				AccessToken:  "access-" + code,
				RefreshToken: "refresh-" + code,
				ExpiresIn:    1800,
			}, nil
		},
		RefreshFunc: func(_ context.Context, refreshToken string) (*providers.Token, error) {
			return &providers.Token{
				AccessToken:  "access-rotated",
				RefreshToken: "refresh-rotated",
				ExpiresIn:    1800,
			}, nil
		},
		RevokeFunc: func(context.Context, string) error {
			return nil
		},
		OrganizationsFunc: func(context.Context, string) ([]providers.Organization, error) {
			return []providers.Organization{{ID: "org-1", Name: "Mock Organization"}}, nil
		},
	}
}

// Name implements providers.Provider.
func (p *Provider) Name() string {
	p.recordCall("Name")
	return p.NameFunc()
}

// AuthorizationURL implements providers.Provider.
func (p *Provider) AuthorizationURL(state, codeChallenge string) string {
	p.recordCall("AuthorizationURL")
	return p.AuthorizationURLFunc(state, codeChallenge)
}

// ExchangeCode implements providers.Provider.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*providers.Token, error) {
	p.recordCall("ExchangeCode")
	return p.ExchangeCodeFunc(ctx, code, codeVerifier)
}

// Refresh implements providers.Provider.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*providers.Token, error) {
	p.recordCall("Refresh")
	return p.RefreshFunc(ctx, refreshToken)
}

// Revoke implements providers.Provider.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	p.recordCall("Revoke")
	return p.RevokeFunc(ctx, accessToken)
}

// Organizations implements providers.Provider.
func (p *Provider) Organizations(ctx context.Context, accessToken string) ([]providers.Organization, error) {
	p.recordCall("Organizations")
	return p.OrganizationsFunc(ctx, accessToken)
}

// CallCount returns how many times the named method was invoked.
func (p *Provider) CallCount(method string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.callCounts[method]
}

func (p *Provider) recordCall(method string) {
	p.mu.Lock()
	p.callCounts[method]++
	p.mu.Unlock()
}

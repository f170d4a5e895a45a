// Package accounting implements providers.Provider for accounting platforms
// that follow the common authorization-code-with-PKCE shape: an authorize
// endpoint, a token endpoint, an optional revocation endpoint, and a
// connections endpoint listing the organizations a token can reach.
// Endpoint URLs are configuration, so one implementation covers the
// platforms this module integrates with.
package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lukgber-glitch/ledgerlink/providers"
)

const defaultTimeout = 30 * time.Second

// Config holds the provider credentials and endpoint URLs.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string

	// RevocationURL is optional; when empty, Revoke is a local no-op.
	RevocationURL string

	// ConnectionsURL is the endpoint listing the organizations an access
	// token is authorized for.
	ConnectionsURL string

	// HTTPClient optionally overrides the default client. Every provider
	// call is bounded by the client timeout.
	HTTPClient *http.Client
}

// Provider talks to one remote accounting platform.
type Provider struct {
	name           string
	config         *oauth2.Config
	revocationURL  string
	connectionsURL string
	httpClient     *http.Client
}

var _ providers.Provider = (*Provider)(nil)

// New creates a provider from cfg.
func New(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("authorize and token endpoint URLs are required")
	}

	name := cfg.Name
	if name == "" {
		name = "accounting"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		revocationURL:  cfg.RevocationURL,
		connectionsURL: cfg.ConnectionsURL,
		httpClient:     httpClient,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// AuthorizationURL builds the consent URL with the S256 PKCE challenge.
func (p *Provider) AuthorizationURL(state, codeChallenge string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges an authorization code for a token set.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*providers.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, &providers.Error{Op: "exchange", StatusCode: statusCode(err), Err: err}
	}
	return fromOAuth2Token(tok), nil
}

// Refresh obtains a new token set using the refresh token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*providers.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &providers.Error{Op: "refresh", StatusCode: statusCode(err), Err: err}
	}

	out := fromOAuth2Token(tok)
	if out.RefreshToken == "" {
		// Providers that do not rotate keep the old refresh token valid.
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// Revoke invalidates the token at the provider's revocation endpoint.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if p.revocationURL == "" {
		return nil
	}

	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &providers.Error{Op: "revoke", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &providers.Error{Op: "revoke", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &providers.Error{
			Op:         "revoke",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("revocation endpoint rejected the request"),
		}
	}
	return nil
}

// Organizations lists the organizations the access token is authorized for,
// in the order the provider reports them.
func (p *Provider) Organizations(ctx context.Context, accessToken string) ([]providers.Organization, error) {
	if p.connectionsURL == "" {
		return nil, &providers.Error{Op: "organizations", Err: fmt.Errorf("connections endpoint not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.connectionsURL, nil)
	if err != nil {
		return nil, &providers.Error{Op: "organizations", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &providers.Error{Op: "organizations", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &providers.Error{
			Op:         "organizations",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("connections endpoint returned an error"),
		}
	}

	// Platforms disagree on field names; accept the common variants.
	var rows []struct {
		ID         string `json:"id"`
		TenantID   string `json:"tenantId"`
		Name       string `json:"name"`
		TenantName string `json:"tenantName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &providers.Error{Op: "organizations", Err: fmt.Errorf("malformed connections payload: %w", err)}
	}

	orgs := make([]providers.Organization, 0, len(rows))
	for _, row := range rows {
		org := providers.Organization{ID: row.ID, Name: row.Name}
		if org.ID == "" {
			org.ID = row.TenantID
		}
		if org.Name == "" {
			org.Name = row.TenantName
		}
		if org.ID != "" {
			orgs = append(orgs, org)
		}
	}
	return orgs, nil
}

func fromOAuth2Token(tok *oauth2.Token) *providers.Token {
	out := &providers.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return out
}

func statusCode(err error) int {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}

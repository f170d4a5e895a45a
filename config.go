package connect

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lukgber-glitch/ledgerlink/vault"
)

// Defaults applied by Config.withDefaults.
const (
	// DefaultRefreshBuffer is how far ahead of access-token expiry a read
	// triggers an inline refresh.
	DefaultRefreshBuffer = 5 * time.Minute

	// DefaultRefreshTokenTTL is how long a stored refresh token is treated
	// as usable before the connection is considered EXPIRED.
	DefaultRefreshTokenTTL = 60 * 24 * time.Hour

	// DefaultAuthURLRate is auth URL issuances per second allowed per tenant.
	DefaultAuthURLRate = 5

	// DefaultAuthURLBurst is the per-tenant burst allowance.
	DefaultAuthURLBurst = 10
)

// Config holds the connection manager configuration.
type Config struct {
	// ClientID is the OAuth client ID registered with the provider (required).
	ClientID string

	// ClientSecret is the OAuth client secret (required).
	ClientSecret string

	// RedirectURL is where the provider redirects after consent (required).
	RedirectURL string

	// Scopes requested during the consent flow.
	Scopes []string

	// MasterEncryptionKey is the secret the vault derives its AES key from.
	// Must be at least 32 characters (required).
	MasterEncryptionKey string

	// WebhookKey verifies inbound webhook signatures. Optional; webhook
	// verification is unavailable when empty.
	WebhookKey string

	// RefreshBuffer is the lead time before access-token expiry at which
	// reads refresh inline. Default: 5 minutes.
	RefreshBuffer time.Duration

	// RefreshTokenTTL bounds how long a refresh token is trusted after its
	// last rotation. Default: 60 days.
	RefreshTokenTTL time.Duration

	// StateTTL is the validity window of a pending authorization flow.
	// Default: flowstate.DefaultTTL (15 minutes).
	StateTTL time.Duration

	// AuthURLRate and AuthURLBurst bound auth URL issuance per tenant.
	// Zero values take the defaults; a negative AuthURLRate disables limiting.
	AuthURLRate  int
	AuthURLBurst int

	// Logger for structured logging (optional, uses slog.Default if not provided)
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for provider requests.
	// If not provided, the provider's default is used.
	HTTPClient *http.Client
}

// Validate reports why the configuration cannot operate. The manager fails
// construction on the first problem; the host decides whether to run without
// the integration rather than getting a half-disabled object.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect url is required")
	}
	if !vault.ValidateMasterKey(c.MasterEncryptionKey) {
		return errors.New("master encryption key must be at least 32 characters")
	}
	return nil
}

func (c *Config) withDefaults() {
	if c.RefreshBuffer <= 0 {
		c.RefreshBuffer = DefaultRefreshBuffer
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.AuthURLRate == 0 {
		c.AuthURLRate = DefaultAuthURLRate
	}
	if c.AuthURLBurst == 0 {
		c.AuthURLBurst = DefaultAuthURLBurst
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigFromEnv builds a Config from environment variables:
// INTEGRATION_CLIENT_ID, INTEGRATION_CLIENT_SECRET, INTEGRATION_REDIRECT_URI,
// INTEGRATION_ENCRYPTION_KEY, and optionally INTEGRATION_WEBHOOK_KEY.
// Validation is left to New so hosts can adjust the result first.
func ConfigFromEnv() Config {
	return Config{
		ClientID:            os.Getenv("INTEGRATION_CLIENT_ID"),
		ClientSecret:        os.Getenv("INTEGRATION_CLIENT_SECRET"),
		RedirectURL:         os.Getenv("INTEGRATION_REDIRECT_URI"),
		MasterEncryptionKey: os.Getenv("INTEGRATION_ENCRYPTION_KEY"),
		WebhookKey:          os.Getenv("INTEGRATION_WEBHOOK_KEY"),
	}
}

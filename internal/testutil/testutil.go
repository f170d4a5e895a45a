// Package testutil provides testing utilities shared across package tests.
package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/lukgber-glitch/ledgerlink/providers"
	"github.com/lukgber-glitch/ledgerlink/storage"
)

// GenerateRandomString returns a URL-safe random string of roughly n bytes
// of entropy. Panics on entropy failure, which only happens when the OS
// random source is broken.
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("testutil: rand.Read: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// TestMasterKey returns a deterministic 32-byte key suitable for vault
// construction in tests. Not random on purpose so failures reproduce.
func TestMasterKey() string {
	return "0123456789abcdef0123456789abcdef"
}

// GenerateTestToken creates a provider token with random material and the
// given lifetime in seconds.
func GenerateTestToken(expiresIn int64) *providers.Token {
	return &providers.Token{
		AccessToken:  "at-" + GenerateRandomString(16),
		RefreshToken: "rt-" + GenerateRandomString(16),
		ExpiresIn:    expiresIn,
	}
}

// GenerateTestConnection creates a connected row for the given tenant and
// organization with placeholder ciphertext fields. Callers that need
// decryptable tokens should seed through the manager instead.
func GenerateTestConnection(tenantID, orgID string) *storage.Connection {
	now := time.Now().UTC()
	return &storage.Connection{
		TenantID:               tenantID,
		ExternalOrgID:          orgID,
		ExternalOrgName:        "Org " + orgID,
		Status:                 storage.StatusConnected,
		AccessTokenCiphertext:  GenerateRandomString(24),
		AccessTokenIV:          GenerateRandomString(12),
		AccessTokenTag:         GenerateRandomString(16),
		RefreshTokenCiphertext: GenerateRandomString(24),
		RefreshTokenIV:         GenerateRandomString(12),
		RefreshTokenTag:        GenerateRandomString(16),
		AccessTokenExpiresAt:   now.Add(30 * time.Minute),
		RefreshTokenExpiresAt:  now.Add(60 * 24 * time.Hour),
		ConnectedAt:            now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

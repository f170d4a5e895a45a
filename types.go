package connect

import (
	"time"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

// ConnectionInfo is the read model returned to callers. It never carries
// token material, encrypted or not.
type ConnectionInfo struct {
	ID                    string     `json:"id"`
	TenantID              string     `json:"tenantId"`
	ExternalOrgID         string     `json:"externalOrgId"`
	ExternalOrgName       string     `json:"externalOrgName"`
	Status                string     `json:"status"`
	IsConnected           bool       `json:"isConnected"`
	LastSyncAt            *time.Time `json:"lastSyncAt,omitempty"`
	LastError             string     `json:"lastError,omitempty"`
	TokenExpiresAt        time.Time  `json:"tokenExpiresAt"`
	RefreshTokenExpiresAt time.Time  `json:"refreshTokenExpiresAt"`
	ConnectedAt           time.Time  `json:"connectedAt"`
}

// CallbackParams carries the provider's redirect query parameters.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// AuthURLResult is the outcome of starting a consent flow.
type AuthURLResult struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// RefreshResult reports a refresh attempt. Ordinary provider failures land
// here with Success false instead of surfacing as errors, so "is it still
// usable" checks don't need error handling for routine failures.
type RefreshResult struct {
	Success               bool       `json:"success"`
	TokenExpiresAt        *time.Time `json:"tokenExpiresAt,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refreshTokenExpiresAt,omitempty"`
	Error                 string     `json:"error,omitempty"`
}

// DisconnectResult reports a completed disconnect.
type DisconnectResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenPair is the decrypted credential set handed to internal collaborators
// that call the provider's data APIs. It must never cross a public surface.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	ExternalOrgID string
}

func infoFromConnection(conn *storage.Connection) *ConnectionInfo {
	return &ConnectionInfo{
		ID:                    conn.ID,
		TenantID:              conn.TenantID,
		ExternalOrgID:         conn.ExternalOrgID,
		ExternalOrgName:       conn.ExternalOrgName,
		Status:                string(conn.Status),
		IsConnected:           conn.Status == storage.StatusConnected,
		LastSyncAt:            conn.LastSyncAt,
		LastError:             conn.LastError,
		TokenExpiresAt:        conn.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: conn.RefreshTokenExpiresAt,
		ConnectedAt:           conn.ConnectedAt,
	}
}

// Package storage defines the durable records for integration connections
// and the store interfaces the lifecycle manager persists through. It
// supports interchangeable backends: in-memory for tests and single-instance
// use, SQL via GORM for production.
package storage

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a connection.
type Status string

const (
	// StatusConnected means the tokens are usable (possibly pending refresh).
	StatusConnected Status = "CONNECTED"

	// StatusExpired means the refresh token's own TTL has elapsed and only a
	// fresh consent flow can revive the connection.
	StatusExpired Status = "EXPIRED"

	// StatusDisconnected means the tenant severed the connection.
	StatusDisconnected Status = "DISCONNECTED"
)

// Audit actions recorded for security-relevant events.
const (
	ActionConnect      = "CONNECT"
	ActionTokenRefresh = "TOKEN_REFRESH"
	ActionDisconnect   = "DISCONNECT"
)

var (
	// ErrNotFound means no connection matched the lookup.
	ErrNotFound = errors.New("storage: connection not found")

	// ErrStaleUpdate is returned by UpdateTokensCAS when the row changed
	// between the caller's read and its write. The caller re-reads and
	// either retries or accepts the concurrent writer's result.
	ErrStaleUpdate = errors.New("storage: connection modified concurrently")
)

// Connection binds one tenant to one external organization's credentials.
// Token material is stored encrypted only; plaintext never reaches a store.
// Each token carries its own IV and tag because GCM IVs are single-use.
// Rows are never hard-deleted by this component; disconnection is a status
// transition and deletion is a data-retention concern elsewhere.
type Connection struct {
	ID              string
	TenantID        string
	ExternalOrgID   string
	ExternalOrgName string

	AccessTokenCiphertext  string
	AccessTokenIV          string
	AccessTokenTag         string
	RefreshTokenCiphertext string
	RefreshTokenIV         string
	RefreshTokenTag        string

	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time

	Status Status

	LastError   string
	LastErrorAt *time.Time

	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	LastSyncAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditLogEntry is one append-only record of a security-relevant event.
type AuditLogEntry struct {
	ID           string
	ConnectionID string // empty when the connection was never created
	TenantID     string
	Action       string
	Success      bool
	ErrorMessage string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// ConnectionStore persists connections. Implementations must serialize
// Upsert per (tenantID, externalOrgID), typically via a composite unique
// key, so concurrent callbacks for the same organization converge on a
// single row instead of duplicating it.
type ConnectionStore interface {
	// Upsert creates the row for (TenantID, ExternalOrgID) or updates it in
	// place, preserving the existing synthetic ID and creation time. The
	// canonical ID is written back into conn.
	Upsert(ctx context.Context, conn *Connection) error

	// FindByTenantOrg returns the connection for the pair, or ErrNotFound.
	FindByTenantOrg(ctx context.Context, tenantID, externalOrgID string) (*Connection, error)

	// FindLatestByTenant returns the tenant's most recently touched
	// connection, or ErrNotFound.
	FindLatestByTenant(ctx context.Context, tenantID string) (*Connection, error)

	// ListByTenant returns all of the tenant's connections, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]*Connection, error)

	// Update overwrites an existing row by ID. Returns ErrNotFound when the
	// row does not exist.
	Update(ctx context.Context, conn *Connection) error

	// UpdateTokensCAS writes conn's token fields only if the stored access
	// token expiry still equals expectedExpiresAt, so a slow refresher can
	// never clobber a newer token set with a stale one. Returns
	// ErrStaleUpdate when another writer got there first.
	UpdateTokensCAS(ctx context.Context, conn *Connection, expectedExpiresAt time.Time) error
}

// AuditStore appends audit entries. Writes are treated as best-effort by
// callers; implementations should still report failures honestly.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
}

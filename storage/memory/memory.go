// Package memory provides in-memory implementations of the connection and
// audit stores. Suitable for development, testing, and single-instance
// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

// Store is an in-memory implementation of storage.ConnectionStore and
// storage.AuditStore.
type Store struct {
	mu          sync.RWMutex
	connections map[string]*storage.Connection // (tenantID, externalOrgID) -> row
	audit       []*storage.AuditLogEntry
}

var (
	_ storage.ConnectionStore = (*Store)(nil)
	_ storage.AuditStore      = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		connections: make(map[string]*storage.Connection),
	}
}

func connKey(tenantID, externalOrgID string) string {
	return tenantID + "\x00" + externalOrgID
}

// Upsert creates or updates the row for (TenantID, ExternalOrgID),
// preserving identity on update. The map key serializes writers per pair.
func (s *Store) Upsert(_ context.Context, conn *storage.Connection) error {
	if conn == nil || conn.TenantID == "" || conn.ExternalOrgID == "" {
		return fmt.Errorf("memory: connection must carry tenant and organization ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := connKey(conn.TenantID, conn.ExternalOrgID)
	if existing, ok := s.connections[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	} else {
		if conn.ID == "" {
			conn.ID = uuid.NewString()
		}
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	s.connections[key] = cloneConnection(conn)
	return nil
}

// FindByTenantOrg returns the connection for the pair, or storage.ErrNotFound.
func (s *Store) FindByTenantOrg(_ context.Context, tenantID, externalOrgID string) (*storage.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.connections[connKey(tenantID, externalOrgID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneConnection(conn), nil
}

// FindLatestByTenant returns the tenant's most recently updated connection.
func (s *Store) FindLatestByTenant(_ context.Context, tenantID string) (*storage.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *storage.Connection
	for _, conn := range s.connections {
		if conn.TenantID != tenantID {
			continue
		}
		if latest == nil || conn.UpdatedAt.After(latest.UpdatedAt) {
			latest = conn
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneConnection(latest), nil
}

// ListByTenant returns all of the tenant's connections, newest first.
func (s *Store) ListByTenant(_ context.Context, tenantID string) ([]*storage.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Connection
	for _, conn := range s.connections {
		if conn.TenantID == tenantID {
			out = append(out, cloneConnection(conn))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.After(out[j].ConnectedAt)
	})
	return out, nil
}

// Update overwrites an existing row by ID.
func (s *Store) Update(_ context.Context, conn *storage.Connection) error {
	if conn == nil {
		return fmt.Errorf("memory: nil connection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := connKey(conn.TenantID, conn.ExternalOrgID)
	existing, ok := s.connections[key]
	if !ok || existing.ID != conn.ID {
		return storage.ErrNotFound
	}

	conn.CreatedAt = existing.CreatedAt
	conn.UpdatedAt = time.Now().UTC()
	s.connections[key] = cloneConnection(conn)
	return nil
}

// UpdateTokensCAS writes conn only if the stored access token expiry still
// equals expectedExpiresAt.
func (s *Store) UpdateTokensCAS(_ context.Context, conn *storage.Connection, expectedExpiresAt time.Time) error {
	if conn == nil {
		return fmt.Errorf("memory: nil connection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := connKey(conn.TenantID, conn.ExternalOrgID)
	existing, ok := s.connections[key]
	if !ok {
		return storage.ErrNotFound
	}
	if !existing.AccessTokenExpiresAt.Equal(expectedExpiresAt) {
		return storage.ErrStaleUpdate
	}

	conn.ID = existing.ID
	conn.CreatedAt = existing.CreatedAt
	conn.UpdatedAt = time.Now().UTC()
	s.connections[key] = cloneConnection(conn)
	return nil
}

// Append records an audit entry.
func (s *Store) Append(_ context.Context, entry *storage.AuditLogEntry) error {
	if entry == nil {
		return fmt.Errorf("memory: nil audit entry")
	}

	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if entry.Metadata != nil {
		cp.Metadata = make(map[string]any, len(entry.Metadata))
		for k, v := range entry.Metadata {
			cp.Metadata[k] = v
		}
	}

	s.mu.Lock()
	s.audit = append(s.audit, &cp)
	s.mu.Unlock()
	return nil
}

// AuditEntries returns a snapshot of recorded audit entries, oldest first.
// Intended for tests.
func (s *Store) AuditEntries() []*storage.AuditLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.AuditLogEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func cloneConnection(conn *storage.Connection) *storage.Connection {
	cp := *conn
	if conn.LastErrorAt != nil {
		t := *conn.LastErrorAt
		cp.LastErrorAt = &t
	}
	if conn.DisconnectedAt != nil {
		t := *conn.DisconnectedAt
		cp.DisconnectedAt = &t
	}
	if conn.LastSyncAt != nil {
		t := *conn.LastSyncAt
		cp.LastSyncAt = &t
	}
	return &cp
}

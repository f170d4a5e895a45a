package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

func newConnection(tenantID, orgID string) *storage.Connection {
	now := time.Now().UTC()
	return &storage.Connection{
		TenantID:              tenantID,
		ExternalOrgID:         orgID,
		ExternalOrgName:       "Org " + orgID,
		AccessTokenCiphertext: "ct-access",
		AccessTokenIV:         "iv-access",
		AccessTokenTag:        "tag-access",
		AccessTokenExpiresAt:  now.Add(30 * time.Minute),
		RefreshTokenExpiresAt: now.Add(60 * 24 * time.Hour),
		Status:                storage.StatusConnected,
		ConnectedAt:           now,
	}
}

func TestUpsertCreatesAndPreservesIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	conn := newConnection("tenant-1", "org-1")
	require.NoError(t, s.Upsert(ctx, conn))
	require.NotEmpty(t, conn.ID)
	firstID := conn.ID

	// Re-connecting the same pair updates in place.
	again := newConnection("tenant-1", "org-1")
	again.ExternalOrgName = "Renamed Org"
	require.NoError(t, s.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID, "upsert must preserve the synthetic id")

	got, err := s.FindByTenantOrg(ctx, "tenant-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Org", got.ExternalOrgName)
	assert.Equal(t, firstID, got.ID)
}

func TestFindByTenantOrgNotFound(t *testing.T) {
	s := New()

	_, err := s.FindByTenantOrg(context.Background(), "tenant-1", "org-404")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindLatestByTenant(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, newConnection("tenant-1", "org-a")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Upsert(ctx, newConnection("tenant-1", "org-b")))

	got, err := s.FindLatestByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "org-b", got.ExternalOrgID)

	_, err = s.FindLatestByTenant(ctx, "tenant-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListByTenant(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, newConnection("tenant-1", "org-a")))
	require.NoError(t, s.Upsert(ctx, newConnection("tenant-1", "org-b")))
	require.NoError(t, s.Upsert(ctx, newConnection("tenant-2", "org-c")))

	got, err := s.ListByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, "tenant-1", c.TenantID)
	}
}

func TestUpdateRequiresExistingRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	conn := newConnection("tenant-1", "org-1")
	conn.ID = "ghost"
	assert.ErrorIs(t, s.Update(ctx, conn), storage.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, conn))
	conn.Status = storage.StatusExpired
	require.NoError(t, s.Update(ctx, conn))

	got, err := s.FindByTenantOrg(ctx, "tenant-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusExpired, got.Status)
}

func TestUpdateTokensCAS(t *testing.T) {
	s := New()
	ctx := context.Background()

	conn := newConnection("tenant-1", "org-1")
	require.NoError(t, s.Upsert(ctx, conn))
	originalExpiry := conn.AccessTokenExpiresAt

	// A writer holding the current expiry wins.
	fresh := *conn
	fresh.AccessTokenCiphertext = "ct-access-v2"
	fresh.AccessTokenExpiresAt = originalExpiry.Add(30 * time.Minute)
	require.NoError(t, s.UpdateTokensCAS(ctx, &fresh, originalExpiry))

	// A writer holding the superseded expiry loses.
	stale := *conn
	stale.AccessTokenCiphertext = "ct-access-stale"
	err := s.UpdateTokensCAS(ctx, &stale, originalExpiry)
	assert.ErrorIs(t, err, storage.ErrStaleUpdate)

	got, err := s.FindByTenantOrg(ctx, "tenant-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "ct-access-v2", got.AccessTokenCiphertext, "stale writer must not revert the newer token")
}

func TestAppendAudit(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, &storage.AuditLogEntry{
		TenantID: "tenant-1",
		Action:   storage.ActionConnect,
		Success:  true,
		Metadata: map[string]any{"external_org_id": "org-1"},
	}))

	entries := s.AuditEntries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.Equal(t, storage.ActionConnect, entries[0].Action)

	assert.Error(t, s.Append(ctx, nil))
}

func TestClonesDoNotAlias(t *testing.T) {
	s := New()
	ctx := context.Background()

	conn := newConnection("tenant-1", "org-1")
	require.NoError(t, s.Upsert(ctx, conn))

	got, err := s.FindByTenantOrg(ctx, "tenant-1", "org-1")
	require.NoError(t, err)
	got.AccessTokenCiphertext = "mutated"

	again, err := s.FindByTenantOrg(ctx, "tenant-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "ct-access", again.AccessTokenCiphertext, "callers must not share the stored copy")
}

func TestCASMissingRow(t *testing.T) {
	s := New()

	conn := newConnection("tenant-1", "org-1")
	err := s.UpdateTokensCAS(context.Background(), conn, time.Now())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

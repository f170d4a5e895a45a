// Package gormstore persists connections and audit entries through GORM, so
// any SQL backend that supports a composite unique index can back the
// manager. The unique index on (tenant_id, external_org_id) serializes
// concurrent upserts for the same pair at the database.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

type connectionRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	TenantID        string `gorm:"size:64;not null;uniqueIndex:idx_tenant_external_org"`
	ExternalOrgID   string `gorm:"size:64;not null;uniqueIndex:idx_tenant_external_org"`
	ExternalOrgName string `gorm:"size:255"`

	AccessTokenCiphertext  string `gorm:"type:text"`
	AccessTokenIV          string `gorm:"size:64"`
	AccessTokenTag         string `gorm:"size:64"`
	RefreshTokenCiphertext string `gorm:"type:text"`
	RefreshTokenIV         string `gorm:"size:64"`
	RefreshTokenTag        string `gorm:"size:64"`

	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time

	Status string `gorm:"size:16;index"`

	LastError   string `gorm:"type:text"`
	LastErrorAt *time.Time

	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	LastSyncAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (connectionRow) TableName() string { return "integration_connections" }

type auditRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	ConnectionID string `gorm:"size:36;index"`
	TenantID     string `gorm:"size:64;index"`
	Action       string `gorm:"size:32"`
	Success      bool
	ErrorMessage string `gorm:"type:text"`
	Metadata     string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (auditRow) TableName() string { return "integration_audit_log" }

// Store implements storage.ConnectionStore and storage.AuditStore on a
// *gorm.DB owned by the caller.
type Store struct {
	db *gorm.DB
}

var (
	_ storage.ConnectionStore = (*Store)(nil)
	_ storage.AuditStore      = (*Store)(nil)
)

// New migrates the schema and returns a ready store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gormstore: db is required")
	}
	if err := db.AutoMigrate(&connectionRow{}, &auditRow{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert creates or updates the row for (TenantID, ExternalOrgID) via an
// ON CONFLICT clause on the composite unique index, then reads the canonical
// identity back into conn.
func (s *Store) Upsert(ctx context.Context, conn *storage.Connection) error {
	if conn == nil || conn.TenantID == "" || conn.ExternalOrgID == "" {
		return fmt.Errorf("gormstore: connection must carry tenant and organization ids")
	}

	row := toConnectionRow(conn)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "external_org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_org_name",
			"access_token_ciphertext", "access_token_iv", "access_token_tag",
			"refresh_token_ciphertext", "refresh_token_iv", "refresh_token_tag",
			"access_token_expires_at", "refresh_token_expires_at",
			"status", "last_error", "last_error_at",
			"connected_at", "disconnected_at", "last_sync_at",
			"updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("gormstore: upsert connection: %w", err)
	}

	// On conflict the stored row keeps its original ID and creation time.
	stored, err := s.FindByTenantOrg(ctx, conn.TenantID, conn.ExternalOrgID)
	if err != nil {
		return fmt.Errorf("gormstore: reload upserted connection: %w", err)
	}
	conn.ID = stored.ID
	conn.CreatedAt = stored.CreatedAt
	conn.UpdatedAt = stored.UpdatedAt
	return nil
}

// FindByTenantOrg returns the connection for the pair, or storage.ErrNotFound.
func (s *Store) FindByTenantOrg(ctx context.Context, tenantID, externalOrgID string) (*storage.Connection, error) {
	var row connectionRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND external_org_id = ?", tenantID, externalOrgID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("gormstore: find connection: %w", err)
	}
	return fromConnectionRow(&row), nil
}

// FindLatestByTenant returns the tenant's most recently updated connection.
func (s *Store) FindLatestByTenant(ctx context.Context, tenantID string) (*storage.Connection, error) {
	var row connectionRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("gormstore: find latest connection: %w", err)
	}
	return fromConnectionRow(&row), nil
}

// ListByTenant returns all of the tenant's connections, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]*storage.Connection, error) {
	var rows []connectionRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("connected_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list connections: %w", err)
	}

	out := make([]*storage.Connection, 0, len(rows))
	for i := range rows {
		out = append(out, fromConnectionRow(&rows[i]))
	}
	return out, nil
}

// Update overwrites an existing row by ID.
func (s *Store) Update(ctx context.Context, conn *storage.Connection) error {
	if conn == nil || conn.ID == "" {
		return fmt.Errorf("gormstore: connection must carry an id")
	}

	tx := s.db.WithContext(ctx).
		Model(&connectionRow{}).
		Where("id = ?", conn.ID).
		Updates(updateColumns(conn))
	if tx.Error != nil {
		return fmt.Errorf("gormstore: update connection: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateTokensCAS writes the token fields only if the stored access token
// expiry still matches expectedExpiresAt.
func (s *Store) UpdateTokensCAS(ctx context.Context, conn *storage.Connection, expectedExpiresAt time.Time) error {
	if conn == nil || conn.ID == "" {
		return fmt.Errorf("gormstore: connection must carry an id")
	}

	tx := s.db.WithContext(ctx).
		Model(&connectionRow{}).
		Where("id = ? AND access_token_expires_at = ?", conn.ID, expectedExpiresAt).
		Updates(updateColumns(conn))
	if tx.Error != nil {
		return fmt.Errorf("gormstore: conditional token update: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&connectionRow{}).Where("id = ?", conn.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("gormstore: conditional token update: %w", err)
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrStaleUpdate
	}
	return nil
}

// Append records an audit entry.
func (s *Store) Append(ctx context.Context, entry *storage.AuditLogEntry) error {
	if entry == nil {
		return fmt.Errorf("gormstore: nil audit entry")
	}

	row := &auditRow{
		ID:           entry.ID,
		ConnectionID: entry.ConnectionID,
		TenantID:     entry.TenantID,
		Action:       entry.Action,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    entry.CreatedAt,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if len(entry.Metadata) > 0 {
		payload, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("gormstore: marshal audit metadata: %w", err)
		}
		row.Metadata = string(payload)
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("gormstore: append audit entry: %w", err)
	}
	return nil
}

func toConnectionRow(conn *storage.Connection) *connectionRow {
	return &connectionRow{
		ID:                     conn.ID,
		TenantID:               conn.TenantID,
		ExternalOrgID:          conn.ExternalOrgID,
		ExternalOrgName:        conn.ExternalOrgName,
		AccessTokenCiphertext:  conn.AccessTokenCiphertext,
		AccessTokenIV:          conn.AccessTokenIV,
		AccessTokenTag:         conn.AccessTokenTag,
		RefreshTokenCiphertext: conn.RefreshTokenCiphertext,
		RefreshTokenIV:         conn.RefreshTokenIV,
		RefreshTokenTag:        conn.RefreshTokenTag,
		AccessTokenExpiresAt:   conn.AccessTokenExpiresAt,
		RefreshTokenExpiresAt:  conn.RefreshTokenExpiresAt,
		Status:                 string(conn.Status),
		LastError:              conn.LastError,
		LastErrorAt:            conn.LastErrorAt,
		ConnectedAt:            conn.ConnectedAt,
		DisconnectedAt:         conn.DisconnectedAt,
		LastSyncAt:             conn.LastSyncAt,
		CreatedAt:              conn.CreatedAt,
		UpdatedAt:              conn.UpdatedAt,
	}
}

func fromConnectionRow(row *connectionRow) *storage.Connection {
	return &storage.Connection{
		ID:                     row.ID,
		TenantID:               row.TenantID,
		ExternalOrgID:          row.ExternalOrgID,
		ExternalOrgName:        row.ExternalOrgName,
		AccessTokenCiphertext:  row.AccessTokenCiphertext,
		AccessTokenIV:          row.AccessTokenIV,
		AccessTokenTag:         row.AccessTokenTag,
		RefreshTokenCiphertext: row.RefreshTokenCiphertext,
		RefreshTokenIV:         row.RefreshTokenIV,
		RefreshTokenTag:        row.RefreshTokenTag,
		AccessTokenExpiresAt:   row.AccessTokenExpiresAt,
		RefreshTokenExpiresAt:  row.RefreshTokenExpiresAt,
		Status:                 storage.Status(row.Status),
		LastError:              row.LastError,
		LastErrorAt:            row.LastErrorAt,
		ConnectedAt:            row.ConnectedAt,
		DisconnectedAt:         row.DisconnectedAt,
		LastSyncAt:             row.LastSyncAt,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
}

// updateColumns builds an explicit column map so zero values (cleared
// last_error, nil disconnected_at) are written, which gorm's struct Updates
// would skip.
func updateColumns(conn *storage.Connection) map[string]any {
	return map[string]any{
		"external_org_name":        conn.ExternalOrgName,
		"access_token_ciphertext":  conn.AccessTokenCiphertext,
		"access_token_iv":          conn.AccessTokenIV,
		"access_token_tag":         conn.AccessTokenTag,
		"refresh_token_ciphertext": conn.RefreshTokenCiphertext,
		"refresh_token_iv":         conn.RefreshTokenIV,
		"refresh_token_tag":        conn.RefreshTokenTag,
		"access_token_expires_at":  conn.AccessTokenExpiresAt,
		"refresh_token_expires_at": conn.RefreshTokenExpiresAt,
		"status":                   string(conn.Status),
		"last_error":               conn.LastError,
		"last_error_at":            conn.LastErrorAt,
		"connected_at":             conn.ConnectedAt,
		"disconnected_at":          conn.DisconnectedAt,
		"last_sync_at":             conn.LastSyncAt,
		"updated_at":               time.Now().UTC(),
	}
}

// Package audit records security-relevant connection events. Writes are
// best-effort: a failed audit write is logged and swallowed, never allowed
// to change the outcome of the operation being audited.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

// Auditor writes audit entries to a durable store and mirrors them to the
// structured log with tenant identifiers hashed.
type Auditor struct {
	store  storage.AuditStore
	logger *slog.Logger
}

// New creates an auditor. A nil store degrades to log-only operation.
func New(store storage.AuditStore, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		store:  store,
		logger: logger,
	}
}

// Entry describes one event to record.
type Entry struct {
	ConnectionID string
	TenantID     string
	Action       string // storage.ActionConnect, ActionTokenRefresh, ActionDisconnect
	Success      bool
	ErrorMessage string
	Metadata     map[string]any
}

// Record writes the entry. It never returns an error: audit is
// observability, not a correctness dependency of the primary operation, so
// store failures are logged at Warn and deliberately swallowed.
func (a *Auditor) Record(ctx context.Context, e Entry) {
	a.logger.Info("connection_audit",
		"action", e.Action,
		"tenant_id_hash", HashForLogging(e.TenantID),
		"connection_id", e.ConnectionID,
		"success", e.Success,
		"error", e.ErrorMessage,
	)

	if a.store == nil {
		return
	}

	entry := &storage.AuditLogEntry{
		ID:           uuid.NewString(),
		ConnectionID: e.ConnectionID,
		TenantID:     e.TenantID,
		Action:       e.Action,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
		Metadata:     e.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.Append(ctx, entry); err != nil {
		a.logger.Warn("Failed to write audit entry",
			"action", e.Action,
			"connection_id", e.ConnectionID,
			"error", err,
		)
	}
}

// HashForLogging creates a SHA256 hash of sensitive data for logging
func HashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}

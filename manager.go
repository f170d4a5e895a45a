package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/lukgber-glitch/ledgerlink/audit"
	"github.com/lukgber-glitch/ledgerlink/flowstate"
	"github.com/lukgber-glitch/ledgerlink/instrumentation"
	"github.com/lukgber-glitch/ledgerlink/internal/util"
	"github.com/lukgber-glitch/ledgerlink/providers"
	"github.com/lukgber-glitch/ledgerlink/storage"
	"github.com/lukgber-glitch/ledgerlink/vault"
)

// maxStoredErrorLength bounds LastError so provider responses can't bloat
// the row.
const maxStoredErrorLength = 500

// Dependencies are the injected backends the manager orchestrates.
type Dependencies struct {
	// Provider is the remote OAuth boundary (required).
	Provider providers.Provider

	// Connections persists durable connection rows (required).
	Connections storage.ConnectionStore

	// States holds pending single-use authorization flows (required).
	States flowstate.Store

	// Audit receives append-only security events. Nil degrades to log-only.
	Audit storage.AuditStore

	// Instrumentation provides telemetry. Nil installs a disabled instance.
	Instrumentation *instrumentation.Instrumentation
}

// Manager drives the connection lifecycle: consent URL issuance, callback
// handling, transparent refresh, and disconnection. Safe for concurrent use.
type Manager struct {
	cfg      Config
	vault    *vault.Vault
	provider providers.Provider
	conns    storage.ConnectionStore
	states   flowstate.Store
	auditor  *audit.Auditor
	inst     *instrumentation.Instrumentation
	logger   *slog.Logger
	limiter  *tenantLimiter

	// refreshGroup collapses concurrent refreshes of the same connection
	// into one provider call.
	refreshGroup singleflight.Group
}

// New validates the configuration and constructs a ready manager.
// Construction fails explicitly on bad config; there is no half-disabled
// object, the host decides what to do without the integration.
func New(cfg Config, deps Dependencies) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, ErrNotConfigured(err.Error())
	}
	if deps.Provider == nil {
		return nil, ErrNotConfigured("provider is required")
	}
	if deps.Connections == nil {
		return nil, ErrNotConfigured("connection store is required")
	}
	if deps.States == nil {
		return nil, ErrNotConfigured("state store is required")
	}

	cfg.withDefaults()

	v, err := vault.New(cfg.MasterEncryptionKey)
	if err != nil {
		return nil, ErrNotConfigured(err.Error())
	}

	inst := deps.Instrumentation
	if inst == nil {
		inst, err = instrumentation.New(instrumentation.Config{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumentation: %w", err)
		}
	}

	return &Manager{
		cfg:      cfg,
		vault:    v,
		provider: deps.Provider,
		conns:    deps.Connections,
		states:   deps.States,
		auditor:  audit.New(deps.Audit, cfg.Logger),
		inst:     inst,
		logger:   cfg.Logger,
		limiter:  newTenantLimiter(cfg.AuthURLRate, cfg.AuthURLBurst, cfg.Logger),
	}, nil
}

// Close releases background resources: the rate limiter's cleanup goroutine
// and the state store.
func (m *Manager) Close() error {
	m.limiter.Stop()
	return m.states.Close()
}

// GenerateAuthURL starts a consent flow for the tenant: generates the PKCE
// triple, stores the pending state, and returns the provider consent URL.
func (m *Manager) GenerateAuthURL(ctx context.Context, tenantID string) (*AuthURLResult, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}
	if !m.limiter.Allow(tenantID) {
		return nil, ErrRateLimited("too many authorization attempts, try again later")
	}

	challenge, err := vault.GeneratePKCE()
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to generate PKCE parameters: %v", err))
	}

	ttl := m.cfg.StateTTL
	if ttl <= 0 {
		ttl = flowstate.DefaultTTL
	}
	now := time.Now().UTC()
	rec := &flowstate.Record{
		State:        challenge.State,
		CodeVerifier: challenge.CodeVerifier,
		TenantID:     tenantID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := m.states.Put(ctx, rec); err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to store flow state: %v", err))
	}

	m.inst.Metrics().AuthURLIssued.Add(ctx, 1)
	m.logger.Info("Authorization URL issued",
		"tenant_id_hash", audit.HashForLogging(tenantID))

	return &AuthURLResult{
		AuthURL: m.provider.AuthorizationURL(challenge.State, challenge.CodeChallenge),
		State:   challenge.State,
	}, nil
}

// HandleCallback completes the consent flow: validates and consumes the
// state, exchanges the code, binds the external organization, encrypts and
// persists the tokens, and audits the connect.
//
// The state is consumed whether or not the rest of the callback succeeds; a
// failed callback forces the user to restart the flow.
func (m *Manager) HandleCallback(ctx context.Context, params CallbackParams) (*ConnectionInfo, error) {
	outcome := "error"
	defer func() {
		m.inst.Metrics().CallbackProcessed.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	if params.Error != "" {
		desc := params.Error
		if params.ErrorDescription != "" {
			desc = fmt.Sprintf("%s: %s", params.Error, params.ErrorDescription)
		}
		return nil, ErrBadRequest("provider denied authorization: " + desc)
	}
	if params.Code == "" || params.State == "" {
		return nil, ErrBadRequest("missing code or state parameter")
	}

	rec, err := m.states.Take(ctx, params.State)
	if err != nil {
		switch {
		case errors.Is(err, flowstate.ErrStateExpired):
			return nil, ErrUnauthorized("authorization flow expired, restart the connection")
		case errors.Is(err, flowstate.ErrStateNotFound):
			return nil, ErrUnauthorized("invalid or already used state parameter")
		default:
			return nil, ErrInternal(fmt.Sprintf("failed to consume flow state: %v", err))
		}
	}

	token, err := m.exchangeCode(ctx, params.Code, rec.CodeVerifier)
	if err != nil {
		m.auditor.Record(ctx, audit.Entry{
			TenantID:     rec.TenantID,
			Action:       storage.ActionConnect,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, ErrProvider("token exchange failed: " + err.Error())
	}

	orgs, err := m.listOrganizations(ctx, token.AccessToken)
	if err != nil {
		m.auditor.Record(ctx, audit.Entry{
			TenantID:     rec.TenantID,
			Action:       storage.ActionConnect,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, ErrProvider("failed to list organizations: " + err.Error())
	}
	if len(orgs) == 0 {
		return nil, ErrProvider("provider reported no connectable organizations")
	}
	// Binding policy: the first organization the provider reports. The
	// count lands in the audit metadata so multi-org consents stay visible.
	org := orgs[0]

	conn, err := m.buildConnection(rec.TenantID, org, token)
	if err != nil {
		return nil, err
	}
	if err := m.conns.Upsert(ctx, conn); err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to persist connection: %v", err))
	}

	m.auditor.Record(ctx, audit.Entry{
		ConnectionID: conn.ID,
		TenantID:     rec.TenantID,
		Action:       storage.ActionConnect,
		Success:      true,
		Metadata: map[string]any{
			"external_org_id":        org.ID,
			"organizations_reported": len(orgs),
		},
	})

	outcome = "success"
	m.logger.Info("Connection established",
		"tenant_id_hash", audit.HashForLogging(rec.TenantID),
		"connection_id", conn.ID)

	return infoFromConnection(conn), nil
}

// buildConnection assembles a CONNECTED row with freshly encrypted tokens.
func (m *Manager) buildConnection(tenantID string, org providers.Organization, token *providers.Token) (*storage.Connection, error) {
	accessCT, err := m.vault.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to encrypt access token: %v", err))
	}
	refreshCT, err := m.vault.Encrypt([]byte(token.RefreshToken))
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to encrypt refresh token: %v", err))
	}

	now := time.Now().UTC()
	return &storage.Connection{
		TenantID:        tenantID,
		ExternalOrgID:   org.ID,
		ExternalOrgName: org.Name,
		Status:          storage.StatusConnected,

		AccessTokenCiphertext:  accessCT.Data,
		AccessTokenIV:          accessCT.IV,
		AccessTokenTag:         accessCT.Tag,
		RefreshTokenCiphertext: refreshCT.Data,
		RefreshTokenIV:         refreshCT.IV,
		RefreshTokenTag:        refreshCT.Tag,

		AccessTokenExpiresAt:  now.Add(time.Duration(token.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(m.cfg.RefreshTokenTTL),
		ConnectedAt:           now,
	}, nil
}

// GetConnections returns the tenant's connections, newest first, without
// token material.
func (m *Manager) GetConnections(ctx context.Context, tenantID string) ([]ConnectionInfo, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}

	conns, err := m.conns.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to list connections: %v", err))
	}

	infos := make([]ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		infos = append(infos, *infoFromConnection(conn))
	}
	return infos, nil
}

// GetConnectionStatus returns the current state of the connection, or nil
// when the tenant has none. A connection whose refresh token has outlived
// its TTL is transitioned to EXPIRED and persisted; a connection whose
// access token is within the refresh buffer is refreshed inline first.
func (m *Manager) GetConnectionStatus(ctx context.Context, tenantID, externalOrgID string) (*ConnectionInfo, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}

	conn, err := m.findConnection(ctx, tenantID, externalOrgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, ErrInternal(fmt.Sprintf("failed to load connection: %v", err))
	}

	conn, err = m.ensureFresh(ctx, conn)
	if err != nil {
		return nil, err
	}
	return infoFromConnection(conn), nil
}

// RefreshTokens exchanges the stored refresh token for a new pair and
// persists it re-encrypted. Precondition violations (no connection, expired
// refresh token) surface as typed errors; an ordinary provider failure is
// reported as RefreshResult{Success: false} without an error, so routine
// "didn't work this time" doesn't demand error handling at every call site.
func (m *Manager) RefreshTokens(ctx context.Context, tenantID, externalOrgID string) (*RefreshResult, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}

	conn, err := m.findConnection(ctx, tenantID, externalOrgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound("no connection found for tenant")
		}
		return nil, ErrInternal(fmt.Sprintf("failed to load connection: %v", err))
	}

	switch conn.Status {
	case storage.StatusDisconnected:
		return nil, ErrNotFound("connection is disconnected")
	case storage.StatusExpired:
		return nil, ErrUnauthorized("refresh token expired, re-authentication required")
	}

	if time.Now().After(conn.RefreshTokenExpiresAt) {
		if err := m.expireConnection(ctx, conn); err != nil {
			return nil, err
		}
		return nil, ErrUnauthorized("refresh token expired, re-authentication required")
	}

	res, err, _ := m.refreshGroup.Do(conn.ID, func() (any, error) {
		return m.doRefresh(ctx, conn)
	})
	if err != nil {
		return nil, err
	}
	return res.(*RefreshResult), nil
}

// doRefresh performs one refresh for the connection. Concurrent callers are
// collapsed by singleflight; the write itself is guarded by an optimistic
// check on the stored access-token expiry so a slow refresher can never
// clobber a newer token set.
func (m *Manager) doRefresh(ctx context.Context, conn *storage.Connection) (*RefreshResult, error) {
	refreshToken, err := m.decryptRefreshToken(conn)
	if err != nil {
		return nil, err
	}

	outcome := "error"
	defer func() {
		m.inst.Metrics().TokenRefreshed.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	token, err := m.refreshAtProvider(ctx, refreshToken)
	if err != nil {
		m.recordRefreshFailure(ctx, conn, err)
		return &RefreshResult{
			Success: false,
			Error:   "token refresh failed: " + err.Error(),
		}, nil
	}

	accessCT, err := m.vault.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to encrypt access token: %v", err))
	}
	refreshCT, err := m.vault.Encrypt([]byte(token.RefreshToken))
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to encrypt refresh token: %v", err))
	}

	now := time.Now().UTC()
	expected := conn.AccessTokenExpiresAt

	updated := *conn
	updated.AccessTokenCiphertext = accessCT.Data
	updated.AccessTokenIV = accessCT.IV
	updated.AccessTokenTag = accessCT.Tag
	updated.RefreshTokenCiphertext = refreshCT.Data
	updated.RefreshTokenIV = refreshCT.IV
	updated.RefreshTokenTag = refreshCT.Tag
	updated.AccessTokenExpiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	updated.RefreshTokenExpiresAt = now.Add(m.cfg.RefreshTokenTTL)
	updated.Status = storage.StatusConnected
	updated.LastError = ""
	updated.LastErrorAt = nil

	if err := m.conns.UpdateTokensCAS(ctx, &updated, expected); err != nil {
		if !errors.Is(err, storage.ErrStaleUpdate) {
			return nil, ErrInternal(fmt.Sprintf("failed to persist refreshed tokens: %v", err))
		}
		// Another writer refreshed first. Its token set is at least as
		// fresh as ours, so report the stored state instead of retrying.
		current, rerr := m.conns.FindByTenantOrg(ctx, conn.TenantID, conn.ExternalOrgID)
		if rerr != nil {
			return nil, ErrInternal(fmt.Sprintf("failed to re-read connection: %v", rerr))
		}
		outcome = "success"
		return &RefreshResult{
			Success:               true,
			TokenExpiresAt:        &current.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: &current.RefreshTokenExpiresAt,
		}, nil
	}

	m.auditor.Record(ctx, audit.Entry{
		ConnectionID: conn.ID,
		TenantID:     conn.TenantID,
		Action:       storage.ActionTokenRefresh,
		Success:      true,
	})

	outcome = "success"
	return &RefreshResult{
		Success:               true,
		TokenExpiresAt:        &updated.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: &updated.RefreshTokenExpiresAt,
	}, nil
}

// recordRefreshFailure persists the failure on the row and audits it. Both
// writes are best-effort; the caller still gets the failure result.
func (m *Manager) recordRefreshFailure(ctx context.Context, conn *storage.Connection, cause error) {
	now := time.Now().UTC()
	conn.LastError = util.SafeTruncate(cause.Error(), maxStoredErrorLength)
	conn.LastErrorAt = &now
	if err := m.conns.Update(ctx, conn); err != nil {
		m.logger.Warn("Failed to record refresh error on connection",
			"connection_id", conn.ID, "error", err)
	}

	m.auditor.Record(ctx, audit.Entry{
		ConnectionID: conn.ID,
		TenantID:     conn.TenantID,
		Action:       storage.ActionTokenRefresh,
		Success:      false,
		ErrorMessage: cause.Error(),
	})
}

// Disconnect severs the connection: best-effort remote revocation, then the
// local DISCONNECTED transition. Revocation failure never blocks the local
// transition. Disconnecting an already-disconnected connection is NotFound.
func (m *Manager) Disconnect(ctx context.Context, tenantID, externalOrgID string) (*DisconnectResult, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}

	conn, err := m.findConnection(ctx, tenantID, externalOrgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound("no connection found for tenant")
		}
		return nil, ErrInternal(fmt.Sprintf("failed to load connection: %v", err))
	}
	if conn.Status == storage.StatusDisconnected {
		return nil, ErrNotFound("connection is already disconnected")
	}

	if accessToken, derr := m.decryptAccessToken(conn); derr != nil {
		m.logger.Warn("Skipping remote revocation, access token unreadable",
			"connection_id", conn.ID, "error", derr)
	} else if rerr := m.revokeAtProvider(ctx, accessToken); rerr != nil {
		m.logger.Warn("Remote token revocation failed",
			"connection_id", conn.ID, "error", rerr)
	}

	now := time.Now().UTC()
	conn.Status = storage.StatusDisconnected
	conn.DisconnectedAt = &now
	if err := m.conns.Update(ctx, conn); err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to persist disconnect: %v", err))
	}

	m.auditor.Record(ctx, audit.Entry{
		ConnectionID: conn.ID,
		TenantID:     tenantID,
		Action:       storage.ActionDisconnect,
		Success:      true,
		Metadata:     map[string]any{"external_org_id": conn.ExternalOrgID},
	})
	m.inst.Metrics().Disconnected.Add(ctx, 1)

	return &DisconnectResult{
		Success: true,
		Message: "connection disconnected",
	}, nil
}

// DecryptedTokens returns the plaintext credential pair for internal
// collaborators that call the provider's data APIs. It applies the same
// inline-refresh policy as GetConnectionStatus and must never be exposed on
// a public surface; the HTTP handler deliberately does not route it.
func (m *Manager) DecryptedTokens(ctx context.Context, tenantID, externalOrgID string) (*TokenPair, error) {
	if tenantID == "" {
		return nil, ErrBadRequest("tenant id is required")
	}

	conn, err := m.findConnection(ctx, tenantID, externalOrgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound("no connection found for tenant")
		}
		return nil, ErrInternal(fmt.Sprintf("failed to load connection: %v", err))
	}

	conn, err = m.ensureFresh(ctx, conn)
	if err != nil {
		return nil, err
	}
	switch conn.Status {
	case storage.StatusExpired:
		return nil, ErrUnauthorized("refresh token expired, re-authentication required")
	case storage.StatusDisconnected:
		return nil, ErrNotFound("connection is disconnected")
	}

	accessToken, err := m.decryptAccessToken(conn)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.decryptRefreshToken(conn)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		ExternalOrgID: conn.ExternalOrgID,
	}, nil
}

// VerifyWebhookSignature checks a webhook payload signature (hex SHA-256)
// in constant time. Returns false when no webhook key is configured.
func (m *Manager) VerifyWebhookSignature(payload []byte, signatureHex string) bool {
	if m.cfg.WebhookKey == "" {
		return false
	}
	return vault.ConstantTimeHashCompare(m.cfg.WebhookKey+string(payload), signatureHex)
}

// findConnection resolves the tenant's connection, by organization when one
// is given, otherwise the most recently touched one.
func (m *Manager) findConnection(ctx context.Context, tenantID, externalOrgID string) (*storage.Connection, error) {
	if externalOrgID != "" {
		return m.conns.FindByTenantOrg(ctx, tenantID, externalOrgID)
	}
	return m.conns.FindLatestByTenant(ctx, tenantID)
}

// ensureFresh applies the read-path token policy: expire the connection when
// the refresh token's TTL has elapsed, refresh inline when the access token
// is within the refresh buffer. Returns the up-to-date row.
func (m *Manager) ensureFresh(ctx context.Context, conn *storage.Connection) (*storage.Connection, error) {
	if conn.Status != storage.StatusConnected {
		return conn, nil
	}

	now := time.Now()
	if now.After(conn.RefreshTokenExpiresAt) {
		if err := m.expireConnection(ctx, conn); err != nil {
			return nil, err
		}
		return conn, nil
	}

	if conn.AccessTokenExpiresAt.Sub(now) > m.cfg.RefreshBuffer {
		return conn, nil
	}

	// Inline refresh. A failed refresh is not fatal to the read; the caller
	// sees the row with LastError set and a near-expiry token.
	if _, err, _ := m.refreshGroup.Do(conn.ID, func() (any, error) {
		return m.doRefresh(ctx, conn)
	}); err != nil {
		m.logger.Warn("Inline token refresh failed",
			"connection_id", conn.ID, "error", err)
	}

	current, err := m.conns.FindByTenantOrg(ctx, conn.TenantID, conn.ExternalOrgID)
	if err != nil {
		return nil, ErrInternal(fmt.Sprintf("failed to re-read connection: %v", err))
	}
	return current, nil
}

// expireConnection persists the EXPIRED transition.
func (m *Manager) expireConnection(ctx context.Context, conn *storage.Connection) error {
	conn.Status = storage.StatusExpired
	if err := m.conns.Update(ctx, conn); err != nil {
		return ErrInternal(fmt.Sprintf("failed to persist expiry transition: %v", err))
	}
	m.logger.Info("Connection expired, re-authentication required",
		"connection_id", conn.ID,
		"tenant_id_hash", audit.HashForLogging(conn.TenantID))
	return nil
}

func (m *Manager) decryptAccessToken(conn *storage.Connection) (string, error) {
	plaintext, err := m.vault.Decrypt(vault.Ciphertext{
		Data: conn.AccessTokenCiphertext,
		IV:   conn.AccessTokenIV,
		Tag:  conn.AccessTokenTag,
	})
	if err != nil {
		return "", ErrIntegrity("access token ciphertext failed verification")
	}
	return string(plaintext), nil
}

func (m *Manager) decryptRefreshToken(conn *storage.Connection) (string, error) {
	plaintext, err := m.vault.Decrypt(vault.Ciphertext{
		Data: conn.RefreshTokenCiphertext,
		IV:   conn.RefreshTokenIV,
		Tag:  conn.RefreshTokenTag,
	})
	if err != nil {
		return "", ErrIntegrity("refresh token ciphertext failed verification")
	}
	return string(plaintext), nil
}

// Provider boundary wrappers: record call counts and duration.

func (m *Manager) exchangeCode(ctx context.Context, code, verifier string) (*providers.Token, error) {
	defer m.observeProviderCall(ctx, "exchange_code", time.Now())
	token, err := m.provider.ExchangeCode(ctx, code, verifier)
	m.countProviderError(ctx, "exchange_code", err)
	return token, err
}

func (m *Manager) refreshAtProvider(ctx context.Context, refreshToken string) (*providers.Token, error) {
	defer m.observeProviderCall(ctx, "refresh", time.Now())
	token, err := m.provider.Refresh(ctx, refreshToken)
	m.countProviderError(ctx, "refresh", err)
	return token, err
}

func (m *Manager) revokeAtProvider(ctx context.Context, accessToken string) error {
	defer m.observeProviderCall(ctx, "revoke", time.Now())
	err := m.provider.Revoke(ctx, accessToken)
	m.countProviderError(ctx, "revoke", err)
	return err
}

func (m *Manager) listOrganizations(ctx context.Context, accessToken string) ([]providers.Organization, error) {
	defer m.observeProviderCall(ctx, "organizations", time.Now())
	orgs, err := m.provider.Organizations(ctx, accessToken)
	m.countProviderError(ctx, "organizations", err)
	return orgs, err
}

func (m *Manager) observeProviderCall(ctx context.Context, op string, start time.Time) {
	m.inst.Metrics().ProviderCallsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)))
	m.inst.Metrics().ProviderAPIDuration.Record(ctx,
		float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("op", op)))
}

func (m *Manager) countProviderError(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	m.inst.Metrics().ProviderCallErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)))
}

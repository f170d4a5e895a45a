// Package connect manages OAuth2 Authorization-Code-with-PKCE connections
// between a multi-tenant application and external business platforms, one
// durable connection per (tenant, external organization) pair.
//
// The Manager orchestrates the full lifecycle: issuing consent URLs with
// single-use CSRF state, handling provider callbacks, encrypted token
// custody, transparent refresh ahead of expiry, and safe disconnection even
// when the remote provider is unreachable.
//
// Backends are injected through interfaces: flowstate.Store for the
// ephemeral single-use state, storage.ConnectionStore and storage.AuditStore
// for durable rows, and providers.Provider for the remote OAuth boundary.
// In-memory implementations serve tests and single-instance deployments;
// Redis and GORM implementations serve multi-instance production.
package connect

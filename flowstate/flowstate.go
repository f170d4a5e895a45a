// Package flowstate holds the short-lived, single-use state records that tie
// an OAuth callback to the request that initiated it. Records are keyed by
// the state parameter and are consumed atomically: two concurrent callbacks
// racing on the same state can never both succeed.
package flowstate

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultTTL is how long a state record stays consumable after creation.
	DefaultTTL = 15 * time.Minute

	// DefaultSweepInterval is how often expired records are evicted.
	DefaultSweepInterval = 10 * time.Minute
)

var (
	// ErrStateNotFound means the state was never issued, already consumed,
	// or already swept.
	ErrStateNotFound = errors.New("flowstate: state not found")

	// ErrStateExpired means the state existed but aged past its validity
	// window. Distinct from ErrStateNotFound so callers can tell the user to
	// restart the flow rather than reporting an unknown state.
	ErrStateExpired = errors.New("flowstate: state expired")
)

// Record is one pending authorization flow. It lives only until the callback
// consumes it or the TTL elapses; losing it merely forces the user to restart
// the consent flow.
type Record struct {
	State        string
	CodeVerifier string
	TenantID     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store is the ephemeral state store. Implementations must make Take a
// single atomic read-and-remove, and must tolerate concurrent Put/Take from
// many in-flight requests plus background eviction.
type Store interface {
	// Put inserts a record keyed by its state token.
	Put(ctx context.Context, rec *Record) error

	// Take atomically reads and removes the record for state. The record is
	// gone after the call whether or not the caller's flow succeeds.
	// Returns ErrStateNotFound or ErrStateExpired as appropriate.
	Take(ctx context.Context, state string) (*Record, error)

	// Close releases background resources.
	Close() error
}

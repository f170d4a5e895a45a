package connect

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// tenantLimiterEntry tracks a limiter and its last access time
type tenantLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// tenantLimiter provides per-tenant rate limiting of auth URL issuance using
// the token bucket algorithm, with idle-entry cleanup to bound memory.
type tenantLimiter struct {
	limiters map[string]*tenantLimiterEntry
	mu       sync.Mutex
	rate     int
	burst    int
	logger   *slog.Logger

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// newTenantLimiter creates a limiter with automatic idle cleanup. A negative
// requestsPerSecond returns nil, which disables limiting entirely.
func newTenantLimiter(requestsPerSecond, burst int, logger *slog.Logger) *tenantLimiter {
	if requestsPerSecond < 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	tl := &tenantLimiter{
		limiters:        make(map[string]*tenantLimiterEntry),
		rate:            requestsPerSecond,
		burst:           burst,
		logger:          logger,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go tl.cleanupLoop()

	return tl
}

// Allow checks whether the tenant may issue another auth URL now.
func (tl *tenantLimiter) Allow(tenantID string) bool {
	if tl == nil {
		return true
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	entry, exists := tl.limiters[tenantID]
	if !exists {
		entry = &tenantLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(tl.rate), tl.burst),
		}
		tl.limiters[tenantID] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

// cleanupLoop periodically removes limiters for tenants that went idle.
func (tl *tenantLimiter) cleanupLoop() {
	ticker := time.NewTicker(tl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tl.cleanup(30 * time.Minute)
		case <-tl.stopCleanup:
			return
		}
	}
}

func (tl *tenantLimiter) cleanup(maxIdle time.Duration) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := time.Now()
	removed := 0
	for tenantID, entry := range tl.limiters {
		if now.Sub(entry.lastAccess) > maxIdle {
			delete(tl.limiters, tenantID)
			removed++
		}
	}

	if removed > 0 {
		tl.logger.Debug("Rate limiter cleanup completed",
			"removed", removed,
			"remaining", len(tl.limiters))
	}
}

// Stop gracefully stops the cleanup goroutine.
func (tl *tenantLimiter) Stop() {
	if tl == nil {
		return
	}
	tl.stopOnce.Do(func() {
		close(tl.stopCleanup)
	})
}

package flowstate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is an in-process Store suitable for tests and single-instance
// deployments. A background sweep evicts expired records.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	stopSweep chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store sweeping at DefaultSweepInterval.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return NewMemoryStoreWithInterval(DefaultSweepInterval, logger)
}

// NewMemoryStoreWithInterval creates a memory store with a custom sweep
// interval. If sweepInterval is zero or negative, DefaultSweepInterval is used.
func NewMemoryStoreWithInterval(sweepInterval time.Duration, logger *slog.Logger) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &MemoryStore{
		records:   make(map[string]*Record),
		stopSweep: make(chan struct{}),
		logger:    logger,
	}
	go s.sweepLoop(sweepInterval)
	return s
}

// Put inserts a record keyed by its state token.
func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	if rec == nil || rec.State == "" {
		return fmt.Errorf("flowstate: record must carry a state token")
	}

	cp := *rec
	s.mu.Lock()
	s.records[rec.State] = &cp
	s.mu.Unlock()
	return nil
}

// Take atomically reads and removes the record for state. Expired records
// that the sweep has not reached yet are consumed and reported expired.
func (s *MemoryStore) Take(_ context.Context, state string) (*Record, error) {
	s.mu.Lock()
	rec, ok := s.records[state]
	if ok {
		delete(s.records, state)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrStateNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrStateExpired
	}

	cp := *rec
	return &cp, nil
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
	})
	return nil
}

// Len reports the number of live records. Intended for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

// sweep removes expired records. A sweep failure must never take the process
// down, so panics are contained here.
func (s *MemoryStore) sweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("State sweep panicked", "panic", r)
		}
	}()

	now := time.Now()
	removed := 0

	s.mu.Lock()
	for state, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, state)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Swept expired authorization states", "removed", removed)
	}
}

package flowstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "connect:state:"

// RedisStore keeps state records in Redis so the provider callback can land
// on any instance of a multi-instance deployment. Redis key TTLs replace the
// background sweep; Take relies on GETDEL for single-use atomicity.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client. The client is owned by the
// caller and is not closed by this store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores the record with a TTL matching its expiry.
func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	if rec == nil || rec.State == "" {
		return fmt.Errorf("flowstate: record must carry a state token")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("flowstate: marshal state record: %w", err)
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("flowstate: record already expired")
	}

	if err := s.client.Set(ctx, redisKeyPrefix+rec.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("flowstate: persist state record: %w", err)
	}
	return nil
}

// Take atomically reads and removes the record via GETDEL. The expiry check
// against the payload covers records Redis has not evicted yet.
func (s *RedisStore) Take(ctx context.Context, state string) (*Record, error) {
	data, err := s.client.GetDel(ctx, redisKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("flowstate: load state record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("flowstate: decode state record: %w", err)
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrStateExpired
	}
	return &rec, nil
}

// Close is a no-op; the Redis client belongs to the caller.
func (s *RedisStore) Close() error {
	return nil
}

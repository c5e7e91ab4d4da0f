package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers gateway idempotency keys (M-Pesa CheckoutRequestID,
// checkout session id) so replayed confirmations are dropped cheaply before
// the ledger's unique index is consulted.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Seen reports whether the key was already marked. It never marks the key
// itself: a confirmation whose ledger write failed must stay retryable.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key once the ledger row for it exists.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, s.redisKey(key), "1", s.ttl).Err()
}

func (s *Store) redisKey(key string) string {
	return fmt.Sprintf("idem:payment:%s", key)
}

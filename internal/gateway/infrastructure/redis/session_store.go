package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shoply/payments-service/internal/gateway/domain"
)

type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, key string, session domain.PaymentSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *SessionStore) Find(ctx context.Context, key string) (domain.PaymentSession, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PaymentSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.PaymentSession{}, err
	}
	var session domain.PaymentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.PaymentSession{}, err
	}
	return session, nil
}

func (s *SessionStore) key(key string) string {
	return fmt.Sprintf("payment:session:%s", key)
}

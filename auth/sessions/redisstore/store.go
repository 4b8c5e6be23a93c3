// Package redisstore backs the session cache with a shared redis service.
package redisstore

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/studykit/go-study-auth/auth/sessions"
)

const keyPrefix = "session:"

var _ sessions.Store = (*Store)(nil)

// Store implements sessions.Store over redis. Values carry their own expiry
// inside the payload; the redis TTL is a safety net that keeps abandoned
// entries from accumulating.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New("[redisstore.New] redis client is required")
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, pkgerrors.Wrap(err, "[redisstore.Get]")
	}
	return payload, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, "[redisstore.Put]")
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return pkgerrors.Wrap(err, "[redisstore.Remove]")
	}
	return nil
}

package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// ErrSessionNotFound is returned when no live session exists for a token.
// Expired entries are reported as absent, not as a distinct state.
var ErrSessionNotFound = errors.New("session not found")

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store is the capability interface over the backing cache service. The
// store must support atomic put/remove with TTLs; the cache layer does not
// require get-then-put transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// Cache holds active session snapshots keyed by session token. It owns the
// serialization of the Session shape and the expiry-check-on-read semantics;
// a hit whose expiry has passed is treated as absent and evicted.
type Cache struct {
	store   Store
	nowTime func() time.Time
}

// CacheOption modifies a Cache.
type CacheOption func(*Cache)

// WithCacheNowTime sets the now time function (primarily for testing).
func WithCacheNowTime(nowFunc func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

func NewCache(store Store, options ...CacheOption) (*Cache, error) {
	if store == nil {
		return nil, pkgerrors.New("[NewCache] cache store is required")
	}
	cache := &Cache{store: store, nowTime: NowTimeFunc}
	for _, opt := range options {
		opt(cache)
	}
	return cache, nil
}

// Get returns the live session for token, or ErrSessionNotFound.
func (c *Cache) Get(ctx context.Context, sessionToken string) (*Session, error) {
	payload, err := c.store.Get(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, pkgerrors.Wrap(err, "[Cache.Get] store.Get")
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		// A corrupt blob is unusable; evict it rather than poisoning reads.
		_ = c.store.Remove(ctx, sessionToken)
		return nil, ErrSessionNotFound
	}

	if session.Expired(c.nowTime()) {
		_ = c.store.Remove(ctx, sessionToken)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Put writes the session snapshot, replacing any previous value for the same
// token. A racing Put resolves last-write-wins.
func (c *Cache) Put(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(err, "[Cache.Put] marshal")
	}

	ttl := session.ExpiresAt.Sub(c.nowTime())
	if ttl <= 0 {
		return pkgerrors.New("[Cache.Put] session already expired")
	}
	if err := c.store.Put(ctx, session.Token, payload, ttl); err != nil {
		return pkgerrors.Wrap(err, "[Cache.Put] store.Put")
	}
	return nil
}

// Remove evicts the session for token. Removing an absent session is a
// no-op.
func (c *Cache) Remove(ctx context.Context, sessionToken string) error {
	if err := c.store.Remove(ctx, sessionToken); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return pkgerrors.Wrap(err, "[Cache.Remove] store.Remove")
	}
	return nil
}

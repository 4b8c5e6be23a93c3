package fakecachestore

import (
	"context"
	"sync"
	"time"

	"github.com/studykit/go-study-auth/auth/sessions"
)

var _ sessions.Store = (*FakeCacheStore)(nil)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// FakeCacheStore is an in-memory sessions.Store for tests and dev wiring.
// TTLs are honored lazily on read.
type FakeCacheStore struct {
	entries map[string]entry
	lock    sync.RWMutex
	nowTime func() time.Time
}

func NewFakeCacheStore() *FakeCacheStore {
	return &FakeCacheStore{
		entries: make(map[string]entry),
		nowTime: time.Now,
	}
}

// SetNowTime overrides the clock used for TTL checks (for tests).
func (s *FakeCacheStore) SetNowTime(nowFunc func() time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nowTime = nowFunc
}

func (s *FakeCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.entries[key]
	if !ok || s.nowTime().After(e.expiresAt) {
		return nil, sessions.ErrSessionNotFound
	}
	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)
	return payload, nil
}

func (s *FakeCacheStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	copied := make([]byte, len(payload))
	copy(copied, payload)
	s.entries[key] = entry{payload: copied, expiresAt: s.nowTime().Add(ttl)}
	return nil
}

func (s *FakeCacheStore) Remove(ctx context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, key)
	return nil
}

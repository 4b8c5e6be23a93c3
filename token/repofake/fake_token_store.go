package faketokenstore

import (
	"context"
	"sync"

	"github.com/studykit/go-study-auth/token"
)

var _ token.Store = (*FakeTokenStore)(nil)

// FakeTokenStore is an in-memory token.Store for tests and dev wiring.
type FakeTokenStore struct {
	tokens map[string]*token.StoredToken
	lock   sync.RWMutex
}

func NewFakeTokenStore() *FakeTokenStore {
	return &FakeTokenStore{tokens: make(map[string]*token.StoredToken)}
}

func (s *FakeTokenStore) Save(ctx context.Context, stored *token.StoredToken) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	copied := *stored
	s.tokens[stored.Value] = &copied
	return nil
}

func (s *FakeTokenStore) Get(ctx context.Context, value string) (*token.StoredToken, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	stored, ok := s.tokens[value]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *FakeTokenStore) MarkUsed(ctx context.Context, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored, ok := s.tokens[value]
	if !ok {
		return token.ErrTokenNotFound
	}
	stored.Used = true
	return nil
}

func (s *FakeTokenStore) Delete(ctx context.Context, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.tokens, value)
	return nil
}

// Count returns the number of stored token records, for assertions in tests.
func (s *FakeTokenStore) Count() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.tokens)
}

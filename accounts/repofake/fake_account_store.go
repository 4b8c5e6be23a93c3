package fakeaccountstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studykit/go-study-auth/accounts"
)

var _ accounts.Store = (*FakeAccountStore)(nil)

// FakeAccountStore is an in-memory accounts.Store for tests and dev wiring.
type FakeAccountStore struct {
	byID map[string]*accounts.Account // keyed appID + "/" + accountID
	lock sync.RWMutex
}

func NewFakeAccountStore() *FakeAccountStore {
	return &FakeAccountStore{
		byID: make(map[string]*accounts.Account),
	}
}

// Add seeds an account, assigning an ID and version when missing.
func (s *FakeAccountStore) Add(account *accounts.Account) *accounts.Account {
	s.lock.Lock()
	defer s.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Version == 0 {
		account.Version = 1
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	stored := *account
	s.byID[key(account.AppID, account.ID)] = &stored
	return account
}

func (s *FakeAccountStore) FindByChannel(ctx context.Context, appID string, channel accounts.ChannelType, value string) (*accounts.Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if value == "" {
		return nil, accounts.ErrAccountNotFound
	}
	for _, account := range s.byID {
		if account.AppID != appID {
			continue
		}
		if channelValue(account, channel) == value {
			copied := *account
			return &copied, nil
		}
	}
	return nil, accounts.ErrAccountNotFound
}

func (s *FakeAccountStore) FindByID(ctx context.Context, appID, id string) (*accounts.Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	account, ok := s.byID[key(appID, id)]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *FakeAccountStore) Update(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored, ok := s.byID[key(account.AppID, account.ID)]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return nil, accounts.ErrVersionConflict
	}

	updated := *account
	updated.Version++
	s.byID[key(account.AppID, account.ID)] = &updated
	copied := updated
	return &copied, nil
}

func key(appID, accountID string) string {
	return appID + "/" + accountID
}

func channelValue(account *accounts.Account, channel accounts.ChannelType) string {
	switch channel {
	case accounts.ChannelEmail:
		return account.Email
	case accounts.ChannelPhone:
		return account.Phone
	case accounts.ChannelExternalID:
		return account.ExternalID
	}
	return ""
}

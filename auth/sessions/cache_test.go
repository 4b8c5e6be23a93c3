package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/auth/sessions"
	fakecachestore "github.com/studykit/go-study-auth/auth/sessions/repofakes"
)

func testSession(now time.Time) *sessions.Session {
	return &sessions.Session{
		Token:          "session-token-1",
		AccountID:      "account-1",
		AppID:          "app-1",
		EffectiveAppID: "app-1",
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	store := fakecachestore.NewFakeCacheStore()
	cache, err := sessions.NewCache(store)
	require.NoError(t, err)

	session := testSession(time.Now())
	require.NoError(t, cache.Put(context.Background(), session))

	read, err := cache.Get(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, session.AccountID, read.AccountID)
	require.Equal(t, session.EffectiveAppID, read.EffectiveAppID)
}

func TestCacheGetMissing(t *testing.T) {
	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), "nope")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestCacheExpiryCheckedOnRead(t *testing.T) {
	now := time.Now()
	store := fakecachestore.NewFakeCacheStore()
	cache, err := sessions.NewCache(store, sessions.WithCacheNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	session := testSession(now)
	require.NoError(t, cache.Put(context.Background(), session))

	// Still live just before expiry.
	now = session.ExpiresAt.Add(-time.Second)
	_, err = cache.Get(context.Background(), session.Token)
	require.NoError(t, err)

	// Past expiry the entry reads as absent and is evicted.
	now = session.ExpiresAt.Add(time.Second)
	_, err = cache.Get(context.Background(), session.Token)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestCachePutRejectsExpiredSession(t *testing.T) {
	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)

	session := testSession(time.Now().Add(-2 * time.Hour))
	require.Error(t, cache.Put(context.Background(), session))
}

func TestCacheCorruptPayloadEvicted(t *testing.T) {
	store := fakecachestore.NewFakeCacheStore()
	cache, err := sessions.NewCache(store)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "bad", []byte("{not json"), time.Hour))
	_, err = cache.Get(context.Background(), "bad")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestCacheRemoveIdempotent(t *testing.T) {
	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)

	session := testSession(time.Now())
	require.NoError(t, cache.Put(context.Background(), session))
	require.NoError(t, cache.Remove(context.Background(), session.Token))
	require.NoError(t, cache.Remove(context.Background(), session.Token))
}

func TestCacheLastWriteWins(t *testing.T) {
	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)

	session := testSession(time.Now())
	require.NoError(t, cache.Put(context.Background(), session))

	updated := *session
	updated.EffectiveAppID = "app-2"
	require.NoError(t, cache.Put(context.Background(), &updated))

	read, err := cache.Get(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, "app-2", read.EffectiveAppID)
}

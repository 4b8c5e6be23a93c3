package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/auth/sessions"
	"github.com/studykit/go-study-auth/auth/sessions/redisstore"
)

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := redisstore.New(client)
	require.NoError(t, err)
	return store, mr
}

func TestStorePutGetRemove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "token-1", []byte(`{"a":1}`), time.Hour))

	payload, err := store.Get(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"a":1}`), payload)

	require.NoError(t, store.Remove(ctx, "token-1"))
	_, err = store.Get(ctx, "token-1")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestStoreTTLEviction(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "token-1", []byte("x"), time.Minute))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "token-1")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestStoreKeysAreNamespaced(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.Put(context.Background(), "token-1", []byte("x"), time.Hour))
	require.True(t, mr.Exists("session:token-1"))
}

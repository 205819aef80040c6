package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"profile-portal/internal/model"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sealer, err := NewSealer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	return NewRedis(client, sealer), mr
}

func TestRedisLoadUnknownSession(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedis(t)

	_, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisStoreAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)
	tokens := Tokens{AccessToken: "acc-1", RefreshToken: "ref-1"}

	require.NoError(t, store.Store(ctx, "sid-1", tokens, 10*time.Minute))

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, tokens, loaded)

	require.Equal(t, 10*time.Minute, mr.TTL(redisKeyPrefix+"sid-1"))

	raw, err := mr.Get(redisKeyPrefix + "sid-1")
	require.NoError(t, err)
	require.NotContains(t, raw, "acc-1")
	require.NotContains(t, raw, "ref-1")
}

func TestRedisStoreReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "old", RefreshToken: "old-r"}, time.Hour))
	require.NoError(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "new", RefreshToken: "new-r"}, time.Minute))

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, Tokens{AccessToken: "new", RefreshToken: "new-r"}, loaded)
	require.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"sid-1"))
}

func TestRedisSessionExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "acc", RefreshToken: "ref"}, time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, err := store.Load(ctx, "sid-1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisValueIsBoundToSessionID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "acc", RefreshToken: "ref"}, time.Hour))
	raw, err := mr.Get(redisKeyPrefix + "sid-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(redisKeyPrefix+"sid-2", raw))

	_, err = store.Load(ctx, "sid-2")
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "acc", RefreshToken: "ref"}, time.Hour))
	require.NoError(t, store.Delete(ctx, "sid-1"))
	require.False(t, mr.Exists(redisKeyPrefix+"sid-1"))

	_, err := store.Load(ctx, "sid-1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "never-stored"))
	require.NoError(t, store.Ping(ctx))
}

func TestRedisUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedis(t)
	mr.Close()

	_, err := store.Load(ctx, "sid-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrSessionNotFound)
	require.Error(t, store.Store(ctx, "sid-1", Tokens{AccessToken: "acc"}, time.Minute))
}

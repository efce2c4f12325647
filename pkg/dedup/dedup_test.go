package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, opts ...RedisOption) (*RedisDeduplicator, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	d := NewRedisDeduplicator(redis.NewClient(&redis.Options{Addr: mr.Addr()}), opts...)
	t.Cleanup(func() { _ = d.Close() })

	return d, mr
}

func TestRedisDeduplicator_MarkSeen(t *testing.T) {
	ctx := context.Background()
	d, mr := setupRedis(t, WithTTL(time.Hour))

	duplicate, err := d.MarkSeen(ctx, "Demo.myshopify.com", "evt-1")
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = d.MarkSeen(ctx, "demo.myshopify.com", "evt-1")
	require.NoError(t, err)
	assert.True(t, duplicate)

	duplicate, err = d.MarkSeen(ctx, "other.myshopify.com", "evt-1")
	require.NoError(t, err)
	assert.False(t, duplicate, "ids are scoped per shop")

	assert.Equal(t, time.Hour, mr.TTL("shopflow:event:demo.myshopify.com:evt-1"))

	mr.FastForward(2 * time.Hour)

	duplicate, err = d.MarkSeen(ctx, "demo.myshopify.com", "evt-1")
	require.NoError(t, err)
	assert.False(t, duplicate, "expired ids are accepted again")
}

func TestRedisDeduplicator_Release(t *testing.T) {
	ctx := context.Background()
	d, mr := setupRedis(t)

	_, err := d.MarkSeen(ctx, "demo.myshopify.com", "evt-3")
	require.NoError(t, err)

	require.NoError(t, d.Release(ctx, "Demo.myshopify.com", "evt-3"))
	assert.False(t, mr.Exists("shopflow:event:demo.myshopify.com:evt-3"))

	duplicate, err := d.MarkSeen(ctx, "demo.myshopify.com", "evt-3")
	require.NoError(t, err)
	assert.False(t, duplicate)

	assert.ErrorIs(t, d.Release(ctx, "demo.myshopify.com", ""), ErrEmptyEventID)
}

func TestRedisDeduplicator_Errors(t *testing.T) {
	ctx := context.Background()
	d, mr := setupRedis(t)

	_, err := d.MarkSeen(ctx, "demo.myshopify.com", "")
	require.ErrorIs(t, err, ErrEmptyEventID)

	require.NoError(t, d.Ping(ctx))

	mr.Close()

	_, err = d.MarkSeen(ctx, "demo.myshopify.com", "evt-2")
	assert.Error(t, err)
}

func TestNewRedisDeduplicatorFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	d, err := NewRedisDeduplicatorFromURL("redis://"+mr.Addr()+"/0", WithPrefix("test"))
	require.NoError(t, err)

	_, err = d.MarkSeen(context.Background(), "shop", "e")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:shop:e"))

	_, err = NewRedisDeduplicatorFromURL("not a url")
	assert.Error(t, err)
}

func TestMemoryDeduplicator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	d := NewMemoryDeduplicator(time.Minute)
	d.now = func() time.Time { return now }

	duplicate, err := d.MarkSeen(ctx, "shop", "a")
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = d.MarkSeen(ctx, "SHOP", "a")
	require.NoError(t, err)
	assert.True(t, duplicate)

	now = now.Add(2 * time.Minute)

	duplicate, err = d.MarkSeen(ctx, "shop", "a")
	require.NoError(t, err)
	assert.False(t, duplicate)

	require.NoError(t, d.Release(ctx, "Shop", "a"))

	duplicate, err = d.MarkSeen(ctx, "shop", "a")
	require.NoError(t, err)
	assert.False(t, duplicate, "released ids are accepted again")

	_, err = d.MarkSeen(ctx, "shop", "")
	assert.ErrorIs(t, err, ErrEmptyEventID)
	assert.ErrorIs(t, d.Release(ctx, "shop", ""), ErrEmptyEventID)
}

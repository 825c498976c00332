package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Path    string `json:"path"`
	Account string `json:"account"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got entry
	assert.True(t, errors.Is(c.Get(ctx, "p1", &got), ErrMiss))

	want := &entry{Path: "p1", Account: "0xabc"}
	require.NoError(t, c.Set(ctx, "p1", want, time.Minute))
	require.NoError(t, c.Get(ctx, "p1", &got))
	assert.Equal(t, *want, got)

	// 读出的是副本
	got.Account = "changed"
	var again entry
	require.NoError(t, c.Get(ctx, "p1", &again))
	assert.Equal(t, "0xabc", again.Account)

	require.NoError(t, c.Delete(ctx, "p1"))
	assert.True(t, errors.Is(c.Get(ctx, "p1", &got), ErrMiss))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, "relay:cache:")

	require.NoError(t, c.Set(ctx, "p1", entry{Path: "p1"}, time.Minute))
	assert.True(t, mr.Exists("relay:cache:p1"))

	var got entry
	require.NoError(t, c.Get(ctx, "p1", &got))
	assert.Equal(t, "p1", got.Path)

	mr.FastForward(2 * time.Minute)
	assert.True(t, errors.Is(c.Get(ctx, "p1", &got), ErrMiss))
}

func TestMultiLevelCache_BackfillsL1(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewRedisCache(client, "relay:cache:")
	c := NewMultiLevelCache(local, remote)

	// 只写 L2, 模拟其他进程写入
	require.NoError(t, remote.Set(ctx, "p2", entry{Path: "p2"}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "p2", &got))
	assert.Equal(t, "p2", got.Path)
	assert.Equal(t, 1, local.Len())

	require.NoError(t, c.Delete(ctx, "p2"))
	assert.True(t, errors.Is(c.Get(ctx, "p2", &got), ErrMiss))
}

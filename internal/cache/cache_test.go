package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
}

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestRedisGetSet(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	var got summary
	found, err := c.Get(ctx, "analytics:t1:dashboard", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := summary{Total: 3, BySource: map[string]int{"referral": 2, "ads": 1}}
	require.NoError(t, c.Set(ctx, "analytics:t1:dashboard", want, time.Minute))

	found, err = c.Get(ctx, "analytics:t1:dashboard", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	found, err = c.Get(ctx, "analytics:t1:dashboard", &got)
	require.NoError(t, err)
	assert.False(t, found, "entry expires after its ttl")
}

func TestRedisDeletePrefix(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "analytics:t1:dashboard", summary{Total: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "analytics:t1:leads:all", summary{Total: 2}, time.Minute))
	require.NoError(t, c.Set(ctx, "analytics:t2:dashboard", summary{Total: 3}, time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "analytics:t1:"))

	assert.False(t, mr.Exists("crm:analytics:t1:dashboard"))
	assert.False(t, mr.Exists("crm:analytics:t1:leads:all"))
	assert.True(t, mr.Exists("crm:analytics:t2:dashboard"))

	require.NoError(t, c.DeletePrefix(ctx, "analytics:nobody:"))
}

func TestRedisCorruptValue(t *testing.T) {
	c, mr := setupRedis(t)
	require.NoError(t, mr.Set("crm:broken", "{not json"))

	var got summary
	_, err := c.Get(context.Background(), "broken", &got)
	assert.Error(t, err)
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.DeletePrefix(ctx, ""))
	assert.NoError(t, c.Ping(ctx))
}

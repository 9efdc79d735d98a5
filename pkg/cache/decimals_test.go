package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdc = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func exerciseCache(t *testing.T, c DecimalsCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, usdc)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, usdc, 6))

	decimals, ok, err := c.Get(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(6), decimals)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	exerciseCache(t, c)

	stored, err := mr.Get("mint_decimals:" + usdc)
	require.NoError(t, err)
	assert.Equal(t, "6", stored)
	assert.Zero(t, mr.TTL("mint_decimals:"+usdc))
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("mint_decimals:"+usdc, "not-a-number"))

	c := NewRedisCache(mr.Addr(), "", 0)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), usdc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0)
	defer c.Close()
	mr.Close()

	_, _, err := c.Get(context.Background(), usdc)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	c := NoopCache{}
	require.NoError(t, c.Set(context.Background(), usdc, 6))
	_, ok, err := c.Get(context.Background(), usdc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	c, err := New("memory", "", "", 0)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New("none", "", "", 0)
	require.NoError(t, err)
	assert.IsType(t, NoopCache{}, c)

	_, err = New("memcached", "", "", 0)
	assert.Error(t, err)
}

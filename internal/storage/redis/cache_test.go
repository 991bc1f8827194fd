package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

type quote struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
}

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestCache(t)

	require.NoError(t, cache.Set(ctx, "eod:AAPL.US", quote{Symbol: "AAPL.US", Close: 190.1}, time.Hour))
	assert.True(t, mr.Exists("indepth:eod:AAPL.US"))

	var got quote
	found, err := cache.Get(ctx, "eod:AAPL.US", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, quote{Symbol: "AAPL.US", Close: 190.1}, got)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestCache(t)

	require.NoError(t, cache.Set(ctx, "k", quote{Symbol: "X"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got quote
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestCache(t)
	require.NoError(t, mr.Set("indepth:bad", "{not json"))

	var got quote
	_, err := cache.Get(ctx, "bad", &got)
	assert.Error(t, err)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

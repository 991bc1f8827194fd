package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/eodhd"
)

// memoryCache is an in-process CacheService that ignores TTLs
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func (m *memoryCache) Close() error { return nil }

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *memoryCache) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := eodhd.NewClient("key", eodhd.WithBaseURL(server.URL), eodhd.WithRateLimit(1000))
	cache := newMemoryCache()
	svc := NewService(client, cache, time.Hour, arbor.NewLogger())
	svc.now = func() time.Time { return testNow }
	return svc, cache
}

func TestService_GetHistoryCached(t *testing.T) {
	var calls int32
	svc, cache := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/eod/AAPL.US", r.URL.Path)
		assert.Equal(t, "2023-03-16", r.URL.Query().Get("from"))
		w.Write([]byte(`[{"date":"2024-03-14","open":1,"high":2,"low":1,"close":1.5,"volume":10}]`))
	})

	ctx := context.Background()
	bars, err := svc.GetHistory(ctx, "AAPL.US", 365)
	require.NoError(t, err)
	require.Len(t, bars, 1)

	again, err := svc.GetHistory(ctx, "AAPL.US", 365)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, bars[0].Date.Equal(again[0].Date))
	assert.Contains(t, cache.entries, "eod:AAPL.US:365:2024-03-15")
}

func TestService_GetCompanyError(t *testing.T) {
	svc, cache := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.GetCompany(context.Background(), "AAPL.US")
	require.Error(t, err)
	assert.Empty(t, cache.entries, "failures are not cached")
}

func TestService_GetOptionChainNotListed(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	chain, err := svc.GetOptionChain(context.Background(), "BHP.AU")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestService_GetNews(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"date":"2024-03-01T14:30:00+00:00","title":"Headline","link":"https://example.com/x"}]`))
	})

	news, err := svc.GetNews(context.Background(), "AAPL.US", 10)
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "example.com", news[0].Publisher)
}

func TestService_NoCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"General":{"Name":"Apple Inc"}}`))
	}))
	defer server.Close()

	svc := NewService(eodhd.NewClient("key", eodhd.WithBaseURL(server.URL)), nil, 0, arbor.NewLogger())
	for i := 0; i < 2; i++ {
		snap, err := svc.GetCompany(context.Background(), "AAPL.US")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc", snap.Name)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, DefaultCacheTTL, svc.ttl)
}

package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
)

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3, 0}
	data := EncodeVector(v)
	require.Len(t, data, 16)
	// 0.5 = 0x3F000000 little-endian
	assert.Equal(t, []byte{0, 0, 0, 0x3f}, data[:4])

	got, err := DecodeVector(data)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

// llamaServer answers /embedding with a vector derived from each input's length
func llamaServer(t *testing.T, nested bool, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embedding", r.URL.Path)
		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		out := make([]map[string]interface{}, 0, len(req.Content))
		// Reverse order to check results are re-sorted by index
		for i := len(req.Content) - 1; i >= 0; i-- {
			vec := []float32{float32(len(req.Content[i])), 0, 0}
			var emb interface{} = vec
			if nested {
				emb = [][]float32{vec}
			}
			out = append(out, map[string]interface{}{"index": i, "embedding": emb})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func TestLocalEmbedder_EmbedBatch(t *testing.T) {
	for _, nested := range []bool{false, true} {
		t.Run(fmt.Sprintf("nested=%v", nested), func(t *testing.T) {
			var calls int32
			server := llamaServer(t, nested, &calls)
			defer server.Close()

			e, err := NewLocalEmbedder(server.URL, "", 3, arbor.NewLogger())
			require.NoError(t, err)
			assert.Equal(t, DefaultLocalModel, e.ModelName())
			assert.Equal(t, 3, e.Dimension())

			texts := make([]string, 70)
			for i := range texts {
				texts[i] = fmt.Sprintf("text %d", i)
			}
			vecs, cost, err := e.EmbedBatch(context.Background(), texts)
			require.NoError(t, err)
			assert.Equal(t, 0.0, cost)
			require.Len(t, vecs, 70)
			// 32 + 32 + 6
			assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
			for _, v := range vecs {
				assert.InDelta(t, 1.0, norm(v), 1e-6)
			}
		})
	}
}

func TestLocalEmbedder_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e, err := NewLocalEmbedder(server.URL, "m", 3, arbor.NewLogger())
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewLocalEmbedder_RejectsRemoteHost(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://127.0.0.1:8086", false},
		{"http://localhost:8086", false},
		{"http://[::1]:8086", false},
		{"http://example.com:8086", true},
		{"http://10.0.0.5:8086", true},
	}
	for _, tt := range tests {
		_, err := NewLocalEmbedder(tt.url, "", 768, arbor.NewLogger())
		if tt.wantErr {
			assert.Error(t, err, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}

func TestGeminiEmbedder_BatchesAndCost(t *testing.T) {
	var batches []int
	var tasks []string
	fn := func(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
		batches = append(batches, len(texts))
		tasks = append(tasks, taskType)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 1}
		}
		return out, nil
	}
	e := newGeminiEmbedder(DefaultGeminiModel, 2, fn, arbor.NewLogger())

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "0123456789"
	}
	vecs, cost, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 250)
	assert.Equal(t, []int{100, 100, 50}, batches)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", tasks[0])
	// 2500 chars
	assert.InDelta(t, 0.000025, cost, 1e-12)
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-6)

	_, err = e.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", tasks[len(tasks)-1])
}

func TestGeminiEmbedder_RetriesRateLimit(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("Error 429, Message: quota exceeded. Please retry in 2.5s., Status: RESOURCE_EXHAUSTED")
		}
		return [][]float32{{0, 2}}, nil
	}
	e := newGeminiEmbedder("m", 2, fn, arbor.NewLogger())
	var waits []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	v, err := e.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{7500 * time.Millisecond, 11250 * time.Millisecond}, waits)
}

func TestGeminiEmbedder_NonRetryableError(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
		attempts++
		return nil, errors.New("invalid argument")
	}
	e := newGeminiEmbedder("m", 2, fn, arbor.NewLogger())

	_, _, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := defaultRetryPolicy()
	assert.Equal(t, 45*time.Second, p.backoff(0, 0))
	assert.Equal(t, 67500*time.Millisecond, p.backoff(1, 0))
	assert.Equal(t, 90*time.Second, p.backoff(2, 0))
	assert.Equal(t, 15*time.Second, p.backoff(0, 10*time.Second))
}

func TestNewService(t *testing.T) {
	logger := arbor.NewLogger()

	svc, err := NewService(context.Background(), &common.EmbeddingConfig{Provider: "local", Dimension: 768}, "", logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalEmbedder{}, svc)

	_, err = NewService(context.Background(), &common.EmbeddingConfig{Provider: "gemini", Dimension: 768}, "", logger)
	assert.Error(t, err)

	_, err = NewService(context.Background(), &common.EmbeddingConfig{Provider: "openai"}, "", logger)
	assert.Error(t, err)
}

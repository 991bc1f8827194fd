package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	DefaultLocalModel = "nomic-ai/nomic-embed-text-v2-moe"
	DefaultLocalURL   = "http://127.0.0.1:8086"
	localBatchSize    = 32
)

type embeddingRequest struct {
	Content []string `json:"content"`
}

// llama-server returns one entry per input. Pooled models give a flat vector,
// older builds nest it one level deeper.
type embeddingResult struct {
	Index     int             `json:"index"`
	Embedding json.RawMessage `json:"embedding"`
}

// LocalEmbedder calls a llama-server started with --embedding.
// Only loopback addresses are dialled.
type LocalEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	logger    arbor.ILogger
}

// NewLocalEmbedder validates that baseURL points at the local machine
func NewLocalEmbedder(baseURL, model string, dimension int, logger arbor.ILogger) (*LocalEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultLocalURL
	}
	if model == "" {
		model = DefaultLocalModel
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid llama-server url %q: %w", baseURL, err)
	}
	if !isLoopback(u.Hostname()) {
		return nil, fmt.Errorf("llama-server url must be localhost, got %q", u.Hostname())
	}

	return &LocalEmbedder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		dimension: dimension,
		client: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, _, err := net.SplitHostPort(addr)
					if err != nil || !isLoopback(host) {
						return nil, fmt.Errorf("refusing to connect to non-localhost address: %s", addr)
					}
					return (&net.Dialer{}).DialContext(ctx, network, addr)
				},
			},
		},
		logger: logger,
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (e *LocalEmbedder) ModelName() string { return e.model }

func (e *LocalEmbedder) Dimension() int { return e.dimension }

// Embed embeds a single query text
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in groups of 32. Local inference costs nothing.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, float64, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += localBatchSize {
		end := start + localBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, vecs...)
	}
	return out, 0, nil
}

func (e *LocalEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Content: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embedding", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llama-server request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llama-server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var results []embeddingResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("llama-server returned %d embeddings for %d inputs", len(results), len(texts))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	vecs := make([][]float32, len(results))
	for i, r := range results {
		v, err := decodeEmbedding(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", r.Index, err)
		}
		vecs[i] = Normalize(v)
	}

	e.logger.Debug().
		Int("count", len(vecs)).
		Int("dimension", len(vecs[0])).
		Msg("Generated local embeddings")

	return vecs, nil
}

func decodeEmbedding(raw json.RawMessage) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	return nil, fmt.Errorf("empty or unrecognised embedding")
}

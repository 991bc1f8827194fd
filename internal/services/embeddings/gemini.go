package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "text-embedding-004"
	geminiBatchSize    = 100
	// Rough estimate, the free tier covers most usage
	geminiCostPer1KChars = 0.00001
)

type embedFunc func(ctx context.Context, texts []string, taskType string) ([][]float32, error)

// GeminiEmbedder embeds through the Gemini API and tracks an estimated cost
type GeminiEmbedder struct {
	model     string
	dimension int
	embed     embedFunc
	retry     retryPolicy
	sleep     func(context.Context, time.Duration) error
	logger    arbor.ILogger
}

// NewGeminiEmbedder creates a genai client for the Gemini API backend
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int, logger arbor.ILogger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	e := newGeminiEmbedder(model, dimension, nil, logger)
	e.embed = func(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
		contents := make([]*genai.Content, len(texts))
		for i, t := range texts {
			contents[i] = genai.NewContentFromText(t, genai.RoleUser)
		}
		config := &genai.EmbedContentConfig{TaskType: taskType}
		if dimension > 0 {
			dim := int32(dimension)
			config.OutputDimensionality = &dim
		}

		result, err := client.Models.EmbedContent(ctx, model, contents, config)
		if err != nil {
			return nil, err
		}
		vecs := make([][]float32, 0, len(result.Embeddings))
		for _, emb := range result.Embeddings {
			vecs = append(vecs, emb.Values)
		}
		return vecs, nil
	}

	logger.Info().
		Str("model", model).
		Int("dimension", dimension).
		Msg("Gemini embedder initialized")

	return e, nil
}

func newGeminiEmbedder(model string, dimension int, fn embedFunc, logger arbor.ILogger) *GeminiEmbedder {
	return &GeminiEmbedder{
		model:     model,
		dimension: dimension,
		embed:     fn,
		retry:     defaultRetryPolicy(),
		sleep:     sleepContext,
		logger:    logger,
	}
}

func (e *GeminiEmbedder) ModelName() string { return e.model }

func (e *GeminiEmbedder) Dimension() int { return e.dimension }

// Embed embeds a search query
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.call(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds documents in groups of 100
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, float64, error) {
	out := make([][]float32, 0, len(texts))
	chars := 0
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := start + geminiBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		for _, t := range batch {
			chars += len([]rune(t))
		}
		vecs, err := e.call(ctx, batch, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, 0, err
		}
		out = append(out, vecs...)
	}
	return out, EstimateGeminiCost(chars), nil
}

// EstimateGeminiCost prices an embedding call by input characters
func EstimateGeminiCost(chars int) float64 {
	return float64(chars) / 1000 * geminiCostPer1KChars
}

func (e *GeminiEmbedder) call(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		vecs, err := e.embed(ctx, texts, taskType)
		if err == nil {
			if len(vecs) != len(texts) {
				return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(vecs), len(texts))
			}
			for i, v := range vecs {
				if len(v) == 0 {
					return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
				}
				vecs[i] = Normalize(v)
			}
			return vecs, nil
		}

		lastErr = err
		if !isRateLimited(err) || attempt == e.retry.MaxRetries {
			break
		}
		wait := e.retry.backoff(attempt, suggestedDelay(err))
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Gemini rate limited, backing off")
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("gemini embedding failed: %w", lastErr)
}

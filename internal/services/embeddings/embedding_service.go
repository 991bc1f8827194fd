package embeddings

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
)

// NewService builds the embedder selected by config.Provider.
// apiKey is only used by the gemini provider.
func NewService(ctx context.Context, config *common.EmbeddingConfig, apiKey string, logger arbor.ILogger) (interfaces.EmbeddingService, error) {
	switch config.Provider {
	case "", "local":
		return NewLocalEmbedder(config.LocalURL, config.LocalModel, config.Dimension, logger)
	case "gemini":
		return NewGeminiEmbedder(ctx, apiKey, config.GeminiModel, config.Dimension, logger)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
}

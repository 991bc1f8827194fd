package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
)

const (
	DefaultModel     = "claude-haiku-4-5"
	DefaultMaxTokens = 2048
)

var _ interfaces.NarrativeService = (*ClaudeService)(nil)

// ClaudeService writes report narratives with the Anthropic Messages API
type ClaudeService struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	retry     *RetryConfig
	logger    arbor.ILogger
}

// NewClaudeService creates the narrative service. The SDK's own retries are
// disabled so that RetryConfig alone decides the retry policy.
func NewClaudeService(config *common.ClaudeConfig, apiKey string, logger arbor.ILogger, opts ...option.RequestOption) (*ClaudeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the narrative (set ANTHROPIC_API_KEY or claude.api_key)")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	s := &ClaudeService{
		client:    anthropic.NewClient(clientOpts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   common.ParseDuration(config.Timeout, 2*time.Minute),
		retry:     NewDefaultRetryConfig(),
		logger:    logger,
	}

	logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Dur("timeout", s.timeout).
		Msg("Claude narrative service initialized")

	return s, nil
}

// Model is the Claude model requests are sent to
func (s *ClaudeService) Model() string { return s.model }

// Narrate sends one system + user exchange and returns the concatenated text blocks
func (s *ClaudeService) Narrate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", fmt.Errorf("user prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	start := time.Now()
	var resp *anthropic.Message
	var err error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, err = s.client.Messages.New(ctx, params)
		if err == nil || !IsRetryable(err) || attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt)
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	s.logger.Debug().
		Str("model", s.model).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("Claude narrative generated")

	return strings.TrimSpace(text.String()), nil
}

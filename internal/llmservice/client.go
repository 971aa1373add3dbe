package llmservice

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"attribution-rag/internal/config"
	"attribution-rag/internal/models"
)

// Client calls the generation service through an openai-compatible endpoint.
type Client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

// Complete sends one prompt and returns the completion text. Failures
// (including context timeouts) surface as *models.GenerationError so callers
// can distinguish them from retrieval conditions.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log.Debug().
		Str("model", c.cfg.Model).
		Float64("temperature", temperature).
		Int("max_tokens", maxTokens).
		Msg("Generating content")

	llm, err := openai.New(
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
		openai.WithModel(c.cfg.Model),
	)
	if err != nil {
		return "", &models.GenerationError{Err: err}
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	res, err := llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", &models.GenerationError{Err: err}
	}
	if len(res.Choices) == 0 || res.Choices[0].Content == "" {
		return "", &models.GenerationError{Err: errors.New("empty completion")}
	}
	return res.Choices[0].Content, nil
}

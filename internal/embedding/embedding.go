package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder is the external embedding service: text in, vector out. Must be
// deterministic enough that identical text yields comparable vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LangchainEmbedder wraps a langchaingo embedder behind the Embedder
// interface.
type LangchainEmbedder struct {
	impl *embeddings.EmbedderImpl
}

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.impl.EmbedQuery(ctx, text)
}

// NewEmbedder builds an embedder from config, openai-compatible or ollama.
func NewEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	log.Debug().
		Str("provider", cfg.Provider).
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("Initializing embedder")

	if cfg.Provider == "ollama" {
		return NewOllamaEmbedder(cfg)
	}
	return NewOpenAIEmbedder(cfg)
}

// NewOpenAIEmbedder targets an openai-compatible endpoint (OpenRouter etc).
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %v", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}
	return &LangchainEmbedder{impl: embedder}, nil
}

// NewOllamaEmbedder targets a local ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (*LangchainEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %v", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}
	return &LangchainEmbedder{impl: embedder}, nil
}

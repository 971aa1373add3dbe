package models

// RerankStrategy selects how stage-1 similarity candidates are reordered.
type RerankStrategy string

const (
	RerankSemantic  RerankStrategy = "semantic"
	RerankMetadata  RerankStrategy = "metadata"
	RerankFinancial RerankStrategy = "financial"
	RerankHybrid    RerankStrategy = "hybrid"
)

// Settings holds the generation and retrieval parameters consumed by the
// retrieval and answering engines, scoped globally or per session.
type Settings struct {
	Temperature         float64        `yaml:"temperature" json:"temperature"`
	MaxTokens           int            `yaml:"max_tokens" json:"max_tokens"`
	RAGEnabled          bool           `yaml:"rag_enabled" json:"rag_enabled"`
	TopK                int            `yaml:"top_k" json:"top_k"`
	RerankTopK          int            `yaml:"rerank_top_k" json:"rerank_top_k"`
	SimilarityThreshold float64        `yaml:"similarity_threshold" json:"similarity_threshold"`
	RerankingStrategy   RerankStrategy `yaml:"reranking_strategy" json:"reranking_strategy"`

	UseCustomPrompts     bool   `yaml:"use_custom_prompts" json:"use_custom_prompts"`
	SystemPrompt         string `yaml:"system_prompt" json:"system_prompt"`
	QueryPrompt          string `yaml:"query_prompt" json:"query_prompt"`
	ResponseFormatPrompt string `yaml:"response_format_prompt" json:"response_format_prompt"`
}

// DefaultSettings returns the documented baseline used when nothing was ever
// stored for a scope.
func DefaultSettings() Settings {
	return Settings{
		Temperature:         0.3,
		MaxTokens:           1024,
		RAGEnabled:          true,
		TopK:                10,
		RerankTopK:          5,
		SimilarityThreshold: 0.2,
		RerankingStrategy:   RerankHybrid,
	}
}

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"attribution-rag/internal/models"
)

// LLMConfig points at one model endpoint (embedding or inference).
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// DatabaseConfig is the Postgres/pgvector backend connection.
type DatabaseConfig struct {
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // "chromem" or "postgres"
	Path     string         `yaml:"path"`    // chromem persistence dir
	InMemory bool           `yaml:"in_memory"`
	Database DatabaseConfig `yaml:"database"`
}

// RerankWeights tunes the metadata/financial/hybrid strategies. These are
// configuration, not constants: they are meant to be adjusted against
// representative sample files.
type RerankWeights struct {
	SemanticWeight float64 `yaml:"semantic_weight"`
	BucketBoost    float64 `yaml:"bucket_boost"`
	PeriodBoost    float64 `yaml:"period_boost"`
	EffectBoost    float64 `yaml:"effect_boost"`
	TypeBoost      float64 `yaml:"type_boost"`
}

// RAGConfig holds retrieval defaults and tuning.
type RAGConfig struct {
	Defaults models.Settings `yaml:"defaults"`
	Weights  RerankWeights   `yaml:"weights"`
}

// SchemaConfig extends the built-in header synonym table. Keys are raw
// headers, values are canonical column keys.
type SchemaConfig struct {
	Synonyms map[string]string `yaml:"synonyms"`
}

type Config struct {
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	LLM      LLMConfig    `yaml:"llm"`
	Store    StoreConfig  `yaml:"store"`
	RAG      RAGConfig    `yaml:"rag"`
	Schema   SchemaConfig `yaml:"schema"`
}

// Default returns a config usable without any file: in-memory chromem,
// baseline settings, shipped rerank weights.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:  "chromem",
			Path:     "./chromemdb",
			InMemory: true,
		},
		RAG: RAGConfig{
			Defaults: models.DefaultSettings(),
			Weights:  DefaultWeights(),
		},
	}
}

// DefaultWeights are the shipped rerank boost weights.
func DefaultWeights() RerankWeights {
	return RerankWeights{
		SemanticWeight: 0.6,
		BucketBoost:    0.3,
		PeriodBoost:    0.1,
		EffectBoost:    0.25,
		TypeBoost:      0.15,
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.RAG.Defaults.TopK == 0 {
		cfg.RAG.Defaults = models.DefaultSettings()
	}
	if cfg.RAG.Weights.SemanticWeight == 0 {
		cfg.RAG.Weights = DefaultWeights()
	}
	return cfg, nil
}

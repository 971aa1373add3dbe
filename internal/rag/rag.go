// Package rag is the two-stage retrieval engine: vector similarity recall
// against a session collection, then a pluggable reranking pass down to the
// final context size.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/config"
	"attribution-rag/internal/embedding"
	"attribution-rag/internal/models"
	"attribution-rag/internal/sessions"
	"attribution-rag/internal/store"
)

type Retriever struct {
	store    store.VectorStore
	embedder embedding.Embedder
	weights  config.RerankWeights
}

func NewRetriever(st store.VectorStore, embedder embedding.Embedder, weights config.RerankWeights) *Retriever {
	return &Retriever{store: st, embedder: embedder, weights: weights}
}

// Search embeds the query, recalls settings.TopK nearest chunks from the
// session's collection, reranks them down to settings.RerankTopK and drops
// everything below the similarity threshold. An empty post-threshold result
// is models.ErrInsufficientContext, never a silent empty list; a missing
// collection is models.ErrSessionNotFound.
func (r *Retriever) Search(ctx context.Context, sessionID, query string, cfg models.Settings) ([]models.ScoredChunk, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	name := sessions.CollectionName(sessionID)
	hits, err := r.store.Search(ctx, name, vector, cfg.TopK)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	candidates := make([]models.ScoredChunk, len(hits))
	for i, hit := range hits {
		payload := models.PayloadFromMetadata(hit.Metadata)
		candidates[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				ID:        hit.ID,
				SessionID: sessionID,
				Type:      payload.Type,
				Text:      hit.Content,
				Payload:   payload,
			},
			Score: hit.Score,
			Rank:  i,
		}
	}

	results := r.rerank(candidates, query, cfg)
	if len(results) > cfg.RerankTopK && cfg.RerankTopK > 0 {
		results = results[:cfg.RerankTopK]
	}

	kept := results[:0]
	for _, c := range results {
		if c.Score >= cfg.SimilarityThreshold {
			kept = append(kept, c)
		}
	}
	log.Debug().
		Str("session_id", sessionID).
		Str("strategy", string(cfg.RerankingStrategy)).
		Int("recalled", len(hits)).
		Int("kept", len(kept)).
		Msg("Search complete")

	if len(kept) == 0 {
		return nil, models.ErrInsufficientContext
	}
	return kept, nil
}

// rerank applies the configured strategy and re-sorts. Ties break by stage-1
// rank, then chunk id, so identical inputs always order identically.
func (r *Retriever) rerank(candidates []models.ScoredChunk, query string, cfg models.Settings) []models.ScoredChunk {
	cues := extractCues(query)
	results := make([]models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		switch cfg.RerankingStrategy {
		case models.RerankMetadata:
			c.Score += r.metadataBoost(c.Chunk.Payload, cues)
		case models.RerankFinancial:
			c.Score += r.financialBoost(c.Chunk.Payload, cues)
		case models.RerankHybrid:
			c.Score = r.weights.SemanticWeight*c.Score +
				r.metadataBoost(c.Chunk.Payload, cues) +
				r.financialBoost(c.Chunk.Payload, cues)
		default: // semantic keeps stage-1 order
		}
		results[i] = c
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Rank != results[j].Rank {
			return results[i].Rank < results[j].Rank
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results
}

package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attribution-rag/internal/config"
	"attribution-rag/internal/models"
	"attribution-rag/internal/sessions"
	"attribution-rag/internal/store"
	"attribution-rag/internal/testutil"
)

func newRetriever(t *testing.T) (*Retriever, *sessions.Manager) {
	t.Helper()
	st, err := store.NewChromemStore("", true)
	require.NoError(t, err)
	embedder := &testutil.FakeEmbedder{}
	return NewRetriever(st, embedder, config.DefaultWeights()), sessions.NewManager(st, embedder)
}

func ingest(t *testing.T, mgr *sessions.Manager, sessionID string) {
	t.Helper()
	chunks := []models.Chunk{
		{ID: sessionID + "-row-001", SessionID: sessionID, Type: models.ChunkTypeRow,
			Text: "Turkey: portfolio return 9.5%, benchmark return 8.0%, active return +1.5pp. Effects: FX +0.1pp, carry +0.0pp.",
			Payload: models.Payload{Type: models.ChunkTypeRow, Bucket: "Turkey", HasFX: true, HasCarry: true,
				Fields: map[string]float64{models.ColFXPP: 0.05, models.ColActiveROR: 1.5}}},
		{ID: sessionID + "-row-002", SessionID: sessionID, Type: models.ChunkTypeRow,
			Text: "Serbia: portfolio return 3.1%, benchmark return 3.5%, active return -0.4pp.",
			Payload: models.Payload{Type: models.ChunkTypeRow, Bucket: "Serbia", HasFX: true, HasCarry: true,
				Fields: map[string]float64{models.ColFXPP: 0, models.ColActiveROR: -0.4}}},
		{ID: sessionID + "-ranking", SessionID: sessionID, Type: models.ChunkTypeRanking,
			Text:    "Ranking by total attribution, best to worst: 1. Turkey +0.43pp; 2. Serbia -0.13pp.",
			Payload: models.Payload{Type: models.ChunkTypeRanking, HasFX: true, HasCarry: true}},
		{ID: sessionID + "-schema", SessionID: sessionID, Type: models.ChunkTypeSchema,
			Text:    "This table contains fixed income performance attribution at country level. FX effects: yes.",
			Payload: models.Payload{Type: models.ChunkTypeSchema, HasFX: true, HasCarry: true}},
	}
	_, err := mgr.Create(context.Background(), sessionID, chunks)
	require.NoError(t, err)
}

func testSettings() models.Settings {
	cfg := models.DefaultSettings()
	cfg.SimilarityThreshold = 0
	cfg.RerankingStrategy = models.RerankSemantic
	return cfg
}

func TestSearchReturnsRelevantChunks(t *testing.T) {
	t.Parallel()

	r, mgr := newRetriever(t)
	ingest(t, mgr, "s1")

	results, err := r.Search(context.Background(), "s1", "what was the portfolio return for Turkey", testSettings())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), testSettings().RerankTopK)
	assert.Equal(t, "s1-row-001", results[0].Chunk.ID, "Turkey row shares the most terms with the query")
	assert.Equal(t, "Turkey", results[0].Chunk.Payload.Bucket, "payload survives the store round trip")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchUnknownSession(t *testing.T) {
	t.Parallel()

	r, _ := newRetriever(t)
	_, err := r.Search(context.Background(), "ghost", "anything", testSettings())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSearchThresholdYieldsInsufficientContext(t *testing.T) {
	t.Parallel()

	r, mgr := newRetriever(t)
	ingest(t, mgr, "s1")

	cfg := testSettings()
	cfg.SimilarityThreshold = 0.999
	_, err := r.Search(context.Background(), "s1", "completely unrelated gibberish zzz", cfg)
	assert.ErrorIs(t, err, models.ErrInsufficientContext)
}

func TestSearchDeterministic(t *testing.T) {
	t.Parallel()

	r, mgr := newRetriever(t)
	ingest(t, mgr, "s1")

	first, err := r.Search(context.Background(), "s1", "fx effects ranking", testSettings())
	require.NoError(t, err)
	second, err := r.Search(context.Background(), "s1", "fx effects ranking", testSettings())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.ID, second[i].Chunk.ID)
	}
}

func candidates() []models.ScoredChunk {
	return []models.ScoredChunk{
		{Rank: 0, Score: 0.50, Chunk: models.Chunk{ID: "a", Payload: models.Payload{
			Type: models.ChunkTypeRow, Bucket: "Turkey", Period: "Q2 2025",
			Fields: map[string]float64{models.ColFXPP: 0.05}, HasFX: true}}},
		{Rank: 1, Score: 0.49, Chunk: models.Chunk{ID: "b", Payload: models.Payload{
			Type: models.ChunkTypeRow, Bucket: "Serbia",
			Fields: map[string]float64{models.ColFXPP: 0}, HasFX: true}}},
		{Rank: 2, Score: 0.48, Chunk: models.Chunk{ID: "c", Payload: models.Payload{
			Type: models.ChunkTypeRanking, HasFX: true}}},
	}
}

func rerankWith(strategy models.RerankStrategy, query string) []models.ScoredChunk {
	r := &Retriever{weights: config.DefaultWeights()}
	cfg := models.DefaultSettings()
	cfg.RerankingStrategy = strategy
	return r.rerank(candidates(), query, cfg)
}

func TestRerankSemanticKeepsOrder(t *testing.T) {
	t.Parallel()

	out := rerankWith(models.RerankSemantic, "tell me about Serbia")
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.Equal(t, "b", out[1].Chunk.ID)
}

func TestRerankMetadataBoostsNamedBucket(t *testing.T) {
	t.Parallel()

	out := rerankWith(models.RerankMetadata, "tell me about Serbia")
	assert.Equal(t, "b", out[0].Chunk.ID, "bucket named in the query outranks a slightly better semantic score")
}

func TestRerankFinancialBoostsNonZeroEffect(t *testing.T) {
	t.Parallel()

	out := rerankWith(models.RerankFinancial, "what drove the fx impact")
	// a has a non-zero fx value (full boost); b and c only carry the
	// table-level flag (half boost)
	assert.Equal(t, "a", out[0].Chunk.ID)
}

func TestRerankFinancialBoostsRankingType(t *testing.T) {
	t.Parallel()

	out := rerankWith(models.RerankFinancial, "who contributed most")
	assert.Equal(t, "c", out[0].Chunk.ID)
}

func TestRerankHybridCombines(t *testing.T) {
	t.Parallel()

	out := rerankWith(models.RerankHybrid, "Serbia fx")
	// b matches the bucket cue; a only the fx magnitude
	assert.Equal(t, "b", out[0].Chunk.ID)
}

func TestRerankTieBreaksByRankThenID(t *testing.T) {
	t.Parallel()

	r := &Retriever{weights: config.DefaultWeights()}
	cfg := models.DefaultSettings()
	cfg.RerankingStrategy = models.RerankSemantic

	tied := []models.ScoredChunk{
		{Rank: 1, Score: 0.5, Chunk: models.Chunk{ID: "z"}},
		{Rank: 0, Score: 0.5, Chunk: models.Chunk{ID: "y"}},
	}
	out := r.rerank(tied, "q", cfg)
	assert.Equal(t, "y", out[0].Chunk.ID, "stage-1 rank breaks score ties")
}

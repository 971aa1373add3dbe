package sessions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attribution-rag/internal/models"
	"attribution-rag/internal/store"
	"attribution-rag/internal/testutil"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	st, err := store.NewChromemStore("", true)
	require.NoError(t, err)
	return NewManager(st, &testutil.FakeEmbedder{})
}

func sampleChunks(sessionID string) []models.Chunk {
	return []models.Chunk{
		{ID: sessionID + "-row-001", SessionID: sessionID, Type: models.ChunkTypeRow,
			Text: "Turkey: portfolio return 9.5%, benchmark return 8.0%, active return +1.5pp.",
			Payload: models.Payload{Type: models.ChunkTypeRow, Bucket: "Turkey"}},
		{ID: sessionID + "-ranking", SessionID: sessionID, Type: models.ChunkTypeRanking,
			Text:    "Ranking by total attribution, best to worst: 1. Turkey +0.43pp.",
			Payload: models.Payload{Type: models.ChunkTypeRanking}},
		{ID: sessionID + "-schema", SessionID: sessionID, Type: models.ChunkTypeSchema,
			Text:    "This table contains fixed income performance attribution at country level.",
			Payload: models.Payload{Type: models.ChunkTypeSchema, HasFX: true}},
	}
}

func TestCreatePopulatesCollection(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	session, err := m.Create(context.Background(), "s1", sampleChunks("s1"))
	require.NoError(t, err)

	assert.Equal(t, "s1", session.SessionID)
	assert.Equal(t, "attr_s1", session.CollectionName)
	assert.Equal(t, 3, session.ChunksCreated)
	assert.Equal(t, 3, session.PointsCount)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.False(t, session.CreatedAt.IsZero())
}

func TestCreateGeneratesSessionID(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	session, err := m.Create(context.Background(), "", sampleChunks("x"))
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
}

func TestReuploadReplacesNotAppends(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx, "s1", sampleChunks("s1"))
	require.NoError(t, err)
	second, err := m.Create(ctx, "s1", sampleChunks("s1"))
	require.NoError(t, err)

	assert.Equal(t, first.PointsCount, second.PointsCount, "re-upload must replace, not append")

	stats, err := m.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PointsCount)
}

func TestStatsUnknownSession(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Stats(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "s1", sampleChunks("s1"))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "s1"))
	require.NoError(t, m.Delete(ctx, "s1"), "deleting a deleted session is not an error")
	require.NoError(t, m.Delete(ctx, "never-existed"))

	_, err = m.Stats(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "a", sampleChunks("a"))
	require.NoError(t, err)
	_, err = m.Create(ctx, "b", sampleChunks("b"))
	require.NoError(t, err)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].SessionID)
	assert.Equal(t, "b", list[1].SessionID)
	for _, s := range list {
		assert.Equal(t, models.SessionStatusActive, s.Status)
		assert.Equal(t, 3, s.PointsCount)
	}
}

func TestCreateAbortsBeforeMutationOnEmbedError(t *testing.T) {
	t.Parallel()

	st, err := store.NewChromemStore("", true)
	require.NoError(t, err)
	ctx := context.Background()

	good := NewManager(st, &testutil.FakeEmbedder{})
	_, err = good.Create(ctx, "s1", sampleChunks("s1"))
	require.NoError(t, err)

	// same store, failing embedder: the existing collection must survive
	bad := NewManager(st, &testutil.FakeEmbedder{Err: assert.AnError})
	_, err = bad.Create(ctx, "s1", sampleChunks("s1"))
	require.Error(t, err)

	stats, err := good.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PointsCount, "failed ingestion must leave the pre-upload state intact")
}

// rejectingStore accepts a fixed number of upserts, then rejects every
// further one, the way a pgvector backend rejects vectors whose dimension
// no longer matches the column.
type rejectingStore struct {
	store.VectorStore
	accept int
	calls  int
}

func (s *rejectingStore) Upsert(ctx context.Context, name string, points []store.Point) error {
	s.calls++
	if s.calls > s.accept {
		return assert.AnError
	}
	return s.VectorStore.Upsert(ctx, name, points)
}

func TestFailedReuploadPreservesLiveCollection(t *testing.T) {
	t.Parallel()

	st, err := store.NewChromemStore("", true)
	require.NoError(t, err)
	// first Create writes staging then live; the re-upload's staging write
	// is the third upsert and must fail
	rejecting := &rejectingStore{VectorStore: st, accept: 2}
	m := NewManager(rejecting, &testutil.FakeEmbedder{})
	ctx := context.Background()

	first, err := m.Create(ctx, "s1", sampleChunks("s1"))
	require.NoError(t, err)
	require.Equal(t, 3, first.PointsCount)

	_, err = m.Create(ctx, "s1", sampleChunks("s1"))
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	stats, err := m.Stats(ctx, "s1")
	require.NoError(t, err, "failed re-upload must leave the previous upload intact")
	assert.Equal(t, 3, stats.PointsCount)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "no staging collection may leak into the session list")
	assert.Equal(t, "s1", list[0].SessionID)
}

func TestCollectionNameSanitized(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "attr_a_b_c", CollectionName("a b/c"))
}

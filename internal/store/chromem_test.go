package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dims ...float32) []float32 {
	// pad to a fixed width so all vectors in a collection agree
	v := make([]float32, 4)
	copy(v, dims)
	return v
}

func TestChromemLifecycle(t *testing.T) {
	t.Parallel()

	s, err := NewChromemStore("", true)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "attr_a"))
	require.NoError(t, s.Upsert(ctx, "attr_a", []Point{
		{ID: "p1", Vector: unitVec(1), Content: "alpha", Metadata: map[string]string{"bucket": "Turkey"}},
		{ID: "p2", Vector: unitVec(0, 1), Content: "beta", Metadata: map[string]string{"bucket": "Serbia"}},
	}))

	info, err := s.CollectionInfo(ctx, "attr_a")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointsCount)
	assert.Equal(t, 2, info.VectorsCount)

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"attr_a"}, names)

	hits, err := s.Search(ctx, "attr_a", unitVec(1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2, "limit is capped at the collection size")
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, "Turkey", hits[0].Metadata["bucket"])
	assert.Greater(t, hits[0].Score, hits[1].Score)

	require.NoError(t, s.DeleteCollection(ctx, "attr_a"))
	require.NoError(t, s.DeleteCollection(ctx, "attr_a"), "deleting a missing collection is not an error")

	_, err = s.Search(ctx, "attr_a", unitVec(1), 1)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = s.CollectionInfo(ctx, "attr_a")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemUpsertMissingCollection(t *testing.T) {
	t.Parallel()

	s, err := NewChromemStore("", true)
	require.NoError(t, err)
	err = s.Upsert(context.Background(), "nope", []Point{{ID: "p", Vector: unitVec(1), Content: "x"}})
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

// Package store abstracts the collection-oriented vector database consumed
// by the session manager and the retrieval engine. Two backends are
// provided: an embedded chromem-go store and a Postgres/pgvector store.
package store

import (
	"context"
	"errors"
)

// Point is one upserted vector with its source text and flat metadata.
type Point struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// ScoredPoint is a search hit. Score is a similarity in [0, 1], higher is
// closer.
type ScoredPoint struct {
	Point
	Score float64
}

// CollectionInfo is the result of a collection liveness probe.
type CollectionInfo struct {
	PointsCount  int
	VectorsCount int
}

// ErrCollectionNotFound is returned by operations against a collection that
// does not exist. Callers translate it to their own not-found condition.
var ErrCollectionNotFound = errors.New("collection not found")

// VectorStore is the collection lifecycle plus the read path. Creation,
// upsert and deletion are only driven by the session manager; search and
// info are read-only.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, points []Point) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error)
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
	ListCollections(ctx context.Context) ([]string, error)
}

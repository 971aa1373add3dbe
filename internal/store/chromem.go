package store

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"
)

// ChromemStore is the embedded chromem-go backend, persistent on disk or
// fully in-memory (the in-memory mode also backs the test suite).
type ChromemStore struct {
	db *chromem.DB
}

func NewChromemStore(dbPath string, inMemory bool) (*ChromemStore, error) {
	if inMemory {
		return &ChromemStore{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	return &ChromemStore{db: db}, nil
}

func (s *ChromemStore) CreateCollection(ctx context.Context, name string) error {
	_, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}
	return nil
}

func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) error {
	if s.db.GetCollection(name, nil) == nil {
		return nil
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection: %v", err)
	}
	return nil
}

func (s *ChromemStore) Upsert(ctx context.Context, name string, points []Point) error {
	c := s.db.GetCollection(name, nil)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Content,
			Metadata:  p.Metadata,
			Embedding: p.Vector,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error) {
	c := s.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	// chromem rejects nResults above the collection size
	if count := c.Count(); limit > count {
		limit = count
	}
	if limit <= 0 {
		return nil, nil
	}
	results, err := c.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	points := make([]ScoredPoint, len(results))
	for i, r := range results {
		points[i] = ScoredPoint{
			Point: Point{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Score: float64(r.Similarity),
		}
	}
	return points, nil
}

func (s *ChromemStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	c := s.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	count := c.Count()
	return &CollectionInfo{PointsCount: count, VectorsCount: count}, nil
}

func (s *ChromemStore) ListCollections(ctx context.Context) ([]string, error) {
	collections := s.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"attribution-rag/internal/config"
)

type pointRecord struct {
	bun.BaseModel `bun:"table:attribution_points,alias:p"`
	ID            string            `bun:"id,pk"`
	Collection    string            `bun:"collection,pk"`
	Content       string            `bun:"content,notnull"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Score         float64           `bun:"score,scanonly"`
}

type collectionRecord struct {
	bun.BaseModel `bun:"table:attribution_collections,alias:c"`
	Name          string    `bun:"name,pk"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// PostgresStore is the Supabase/pgvector backend behind the same interface
// as the embedded store.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresStore, error) {
	dsn := cfg.DSN + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	s := &PostgresStore{db: db}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*collectionRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to init collections table: %v", err)
	}
	if _, err := s.db.NewCreateTable().Model((*pointRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to init points table: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateCollection(ctx context.Context, name string) error {
	rec := &collectionRecord{Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().Model(rec).On("CONFLICT (name) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.db.NewDelete().Model((*pointRecord)(nil)).Where("collection = ?", name).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete points: %v", err)
	}
	if _, err := s.db.NewDelete().Model((*collectionRecord)(nil)).Where("name = ?", name).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete collection: %v", err)
	}
	return nil
}

func (s *PostgresStore) exists(ctx context.Context, name string) (bool, error) {
	return s.db.NewSelect().Model((*collectionRecord)(nil)).Where("name = ?", name).Exists(ctx)
}

func (s *PostgresStore) Upsert(ctx context.Context, name string, points []Point) error {
	ok, err := s.exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %v", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	recs := make([]pointRecord, len(points))
	for i, p := range points {
		recs[i] = pointRecord{
			ID:         p.ID,
			Collection: name,
			Content:    p.Content,
			Embedding:  p.Vector,
			Metadata:   p.Metadata,
		}
	}
	_, err = s.db.NewInsert().Model(&recs).On("CONFLICT (id, collection) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("metadata = EXCLUDED.metadata").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert points: %v", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error) {
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %v", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	var recs []pointRecord
	err = s.db.NewSelect().
		Model(&recs).
		Column("id", "content", "metadata").
		ColumnExpr("1 - (embedding <=> ?) AS score", pgdialect.Array(vector)).
		Where("collection = ?", name).
		OrderExpr("embedding <=> ?", pgdialect.Array(vector)).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %v", err)
	}
	points := make([]ScoredPoint, len(recs))
	for i, r := range recs {
		points[i] = ScoredPoint{
			Point: Point{ID: r.ID, Content: r.Content, Metadata: r.Metadata},
			Score: r.Score,
		}
	}
	return points, nil
}

func (s *PostgresStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %v", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	count, err := s.db.NewSelect().Model((*pointRecord)(nil)).Where("collection = ?", name).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %v", err)
	}
	return &CollectionInfo{PointsCount: count, VectorsCount: count}, nil
}

func (s *PostgresStore) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		Model((*collectionRecord)(nil)).
		Column("name").
		Order("name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %v", err)
	}
	return names, nil
}

// Package sessions owns the lifecycle of one isolated vector collection per
// upload session: creation, population, lookup, deletion, listing.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/embedding"
	"attribution-rag/internal/helper"
	"attribution-rag/internal/models"
	"attribution-rag/internal/store"
)

const (
	collectionPrefix = "attr_"

	// stagingPrefix keeps staging collections out of the session namespace,
	// so List never reports one.
	stagingPrefix = "staging_"
)

// CollectionName derives the deterministic collection name for a session.
func CollectionName(sessionID string) string {
	return collectionPrefix + helper.SanitizeName(sessionID)
}

// Manager drives the session collection lifecycle. Creation and deletion are
// the only operations that mutate the vector store.
type Manager struct {
	store    store.VectorStore
	embedder embedding.Embedder

	mu      sync.Mutex
	created map[string]time.Time // collection name -> creation time
}

func NewManager(st store.VectorStore, embedder embedding.Embedder) *Manager {
	return &Manager{
		store:    st,
		embedder: embedder,
		created:  map[string]time.Time{},
	}
}

// Create embeds every chunk and replaces the session's collection with the
// new point set. Ingestion is all-or-nothing from the caller's perspective:
// everything fallible runs before the live collection is touched. The
// embedding calls come first, then the full point set is written to a
// staging collection so the store gets to reject it (wrong vector
// dimension, unreachable backend) while the previous upload is still
// intact. Only a point set the store has accepted replaces the live
// collection. Re-uploading under the same id replaces, never appends.
func (m *Manager) Create(ctx context.Context, sessionID string, chunks []models.Chunk) (*models.Session, error) {
	if sessionID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	points := make([]store.Point, len(chunks))
	for i, chunk := range chunks {
		vector, err := m.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		points[i] = store.Point{
			ID:       chunk.ID,
			Vector:   vector,
			Content:  chunk.Text,
			Metadata: chunk.Payload.Metadata(),
		}
	}

	name := CollectionName(sessionID)
	staging := stagingPrefix + name
	if err := m.store.DeleteCollection(ctx, staging); err != nil {
		return nil, storeErr(err)
	}
	if err := m.store.CreateCollection(ctx, staging); err != nil {
		return nil, storeErr(err)
	}
	if err := m.store.Upsert(ctx, staging, points); err != nil {
		if cleanupErr := m.store.DeleteCollection(ctx, staging); cleanupErr != nil {
			log.Error().Err(cleanupErr).Str("collection", staging).Msg("Failed to clean up staging collection")
		}
		return nil, storeErr(err)
	}
	if err := m.store.DeleteCollection(ctx, staging); err != nil {
		log.Warn().Err(err).Str("collection", staging).Msg("Failed to drop staging collection")
	}

	if err := m.store.DeleteCollection(ctx, name); err != nil {
		return nil, storeErr(err)
	}
	if err := m.store.CreateCollection(ctx, name); err != nil {
		return nil, storeErr(err)
	}
	if err := m.store.Upsert(ctx, name, points); err != nil {
		// the store already accepted this exact point set in staging, so
		// only an outage lands here; do not leave a partial chunk set behind
		if cleanupErr := m.store.DeleteCollection(ctx, name); cleanupErr != nil {
			log.Error().Err(cleanupErr).Str("collection", name).Msg("Failed to clean up after aborted upsert")
		}
		return nil, storeErr(err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.created[name] = now
	m.mu.Unlock()

	log.Info().Str("session_id", sessionID).Str("collection", name).Int("chunks", len(points)).Msg("Session collection created")

	session := &models.Session{
		SessionID:      sessionID,
		CollectionName: name,
		CreatedAt:      now,
		ChunksCreated:  len(points),
		Status:         models.SessionStatusActive,
	}
	if info, err := m.store.CollectionInfo(ctx, name); err == nil {
		session.PointsCount = info.PointsCount
		session.VectorsCount = info.VectorsCount
	}
	return session, nil
}

// Stats probes one session's collection.
func (m *Manager) Stats(ctx context.Context, sessionID string) (*models.Session, error) {
	name := CollectionName(sessionID)
	info, err := m.store.CollectionInfo(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
		}
		return nil, storeErr(err)
	}
	return &models.Session{
		SessionID:      sessionID,
		CollectionName: name,
		CreatedAt:      m.createdAt(name),
		PointsCount:    info.PointsCount,
		VectorsCount:   info.VectorsCount,
		Status:         models.SessionStatusActive,
	}, nil
}

// List returns one summary per known session collection. A collection that
// exists but fails its liveness probe is reported with status error rather
// than omitted.
func (m *Manager) List(ctx context.Context) ([]models.Session, error) {
	names, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	sessions := make([]models.Session, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, collectionPrefix) {
			continue
		}
		session := models.Session{
			SessionID:      strings.TrimPrefix(name, collectionPrefix),
			CollectionName: name,
			CreatedAt:      m.createdAt(name),
		}
		info, err := m.store.CollectionInfo(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("Collection failed liveness probe")
			session.Status = models.SessionStatusError
		} else {
			session.Status = models.SessionStatusActive
			session.PointsCount = info.PointsCount
			session.VectorsCount = info.VectorsCount
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes the session's collection. Deleting an unknown session is
// not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	name := CollectionName(sessionID)
	if err := m.store.DeleteCollection(ctx, name); err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil
		}
		return storeErr(err)
	}
	m.mu.Lock()
	delete(m.created, name)
	m.mu.Unlock()
	return nil
}

func (m *Manager) createdAt(name string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created[name]
}

// storeErr tags unexpected store failures so callers can tell an unreachable
// store from a missing session.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}

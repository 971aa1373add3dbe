// Package engine is the boundary surface consumed by the transport layer:
// upload, question, commentary, session listing/deletion and settings.
package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/answer"
	"attribution-rag/internal/chunker"
	"attribution-rag/internal/helper"
	"attribution-rag/internal/models"
	"attribution-rag/internal/parser"
	"attribution-rag/internal/sessions"
	"attribution-rag/internal/settings"
)

// UploadResult is the ingestion summary returned to the caller.
type UploadResult struct {
	SessionID        string
	AssetClass       models.AssetClass
	AttributionLevel models.AttributionLevel
	Period           string
	ChunksCreated    int
	CollectionName   string
	Warnings         []string
}

type Engine struct {
	normalizer *parser.Normalizer
	sessions   *sessions.Manager
	answerer   *answer.Engine
	settings   *settings.Store
}

func New(normalizer *parser.Normalizer, mgr *sessions.Manager, answerer *answer.Engine, st *settings.Store) *Engine {
	return &Engine{
		normalizer: normalizer,
		sessions:   mgr,
		answerer:   answerer,
		settings:   st,
	}
}

// Upload parses raw spreadsheet bytes, synthesizes chunks and populates the
// session's collection. A structurally unreadable sheet fails before any
// session is created; re-upload under the same id replaces the collection.
func (e *Engine) Upload(ctx context.Context, data []byte, filename, sessionID string) (*UploadResult, error) {
	grids, err := parser.ReadTable(data, filename)
	if err != nil {
		return nil, err
	}
	table, err := e.normalizer.Normalize(grids, filename)
	if err != nil {
		return nil, err
	}

	// session id is needed before chunk synthesis: chunk ids embed it
	if sessionID == "" {
		sessionID, err = helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
	}
	chunks := chunker.BuildChunks(table, sessionID)
	session, err := e.sessions.Create(ctx, sessionID, chunks)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.SessionID).
		Str("asset_class", string(table.AssetClass)).
		Str("level", string(table.Level)).
		Int("chunks_created", session.ChunksCreated).
		Msg("Upload complete")

	return &UploadResult{
		SessionID:        session.SessionID,
		AssetClass:       table.AssetClass,
		AttributionLevel: table.Level,
		Period:           table.Period,
		ChunksCreated:    session.ChunksCreated,
		CollectionName:   session.CollectionName,
		Warnings:         table.Warnings,
	}, nil
}

// Question runs strict-grounding Q&A against a session.
func (e *Engine) Question(ctx context.Context, sessionID, question string) (*answer.Response, error) {
	return e.answerer.Question(ctx, sessionID, question)
}

// Commentary generates structured commentary for a session, optionally
// scoped to a period.
func (e *Engine) Commentary(ctx context.Context, sessionID, period string) (*answer.Response, error) {
	return e.answerer.Commentary(ctx, sessionID, period)
}

// ListSessions summarizes every known session collection.
func (e *Engine) ListSessions(ctx context.Context) ([]models.Session, error) {
	return e.sessions.List(ctx)
}

// DeleteSession removes a session's collection and settings. Idempotent.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.settings.Forget(sessionID)
	return nil
}

// GetSettings returns the effective settings for a scope; empty id reads the
// global scope. Always succeeds.
func (e *Engine) GetSettings(sessionID string) models.Settings {
	return e.settings.Get(sessionID)
}

// UpdateSettings stores settings for a scope.
func (e *Engine) UpdateSettings(sessionID string, cfg models.Settings) {
	e.settings.Update(sessionID, cfg)
}

// ResetSettings restores a scope to the defaults. Never fails, even when
// nothing was ever stored.
func (e *Engine) ResetSettings(sessionID string) models.Settings {
	return e.settings.Reset(sessionID)
}

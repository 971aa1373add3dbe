// Package settings keeps the generation/retrieval parameters consumed by the
// retrieval and answering engines, scoped globally or per session. It
// replaces ambient globals: the store is constructed once and passed in.
package settings

import (
	"sync"

	"attribution-rag/internal/models"
)

// Store holds settings in process memory. Zero stored state is always valid:
// Get falls back to the global scope, then to the defaults.
type Store struct {
	mu        sync.RWMutex
	defaults  models.Settings
	global    *models.Settings
	bySession map[string]models.Settings
}

// NewStore builds a store around the given defaults (normally from config).
func NewStore(defaults models.Settings) *Store {
	return &Store{
		defaults:  defaults,
		bySession: map[string]models.Settings{},
	}
}

// Get returns the effective settings for a session. An empty session id
// addresses the global scope. Never fails.
func (s *Store) Get(sessionID string) models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sessionID != "" {
		if cfg, ok := s.bySession[sessionID]; ok {
			return cfg
		}
	}
	if s.global != nil {
		return *s.global
	}
	return s.defaults
}

// Update stores settings for a session, or globally when the id is empty.
func (s *Store) Update(sessionID string, cfg models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" {
		global := cfg
		s.global = &global
		return
	}
	s.bySession[sessionID] = cfg
}

// Reset drops the stored settings for a scope and returns the defaults.
// Resetting a scope that never stored anything is not an error.
func (s *Store) Reset(sessionID string) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" {
		s.global = nil
	} else {
		delete(s.bySession, sessionID)
	}
	return s.defaults
}

// Forget removes per-session settings when a session is deleted.
func (s *Store) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySession, sessionID)
}

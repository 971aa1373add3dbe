package models

import (
	"errors"
	"fmt"
)

// Sentinel conditions. Callers match with errors.Is.
var (
	// ErrSessionNotFound means an operation referenced an unknown or
	// deleted session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInsufficientContext means retrieval produced nothing above the
	// similarity threshold. It is a valid terminal state, not a fault:
	// Q&A mode must answer with an explicit refusal.
	ErrInsufficientContext = errors.New("insufficient context")

	// ErrStoreUnavailable means the vector store itself was unreachable,
	// as opposed to a missing collection.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// ParseError means the spreadsheet structure was unreadable (no header row,
// or zero data rows after normalization). Fatal to that upload; no session
// is created.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// GenerationError wraps a failed or timed-out generation-service call.
// Retryable by the caller; never auto-retried internally.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

package models

import "time"

// SessionStatus reports the health of a session's backing collection.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusError   SessionStatus = "error"
	SessionStatusUnknown SessionStatus = "unknown"
)

// Session describes one upload's isolation boundary. Lifetime is
// owner-managed: created on first successful upload, destroyed only by an
// explicit delete.
type Session struct {
	SessionID      string
	CollectionName string
	CreatedAt      time.Time
	ChunksCreated  int
	PointsCount    int
	VectorsCount   int
	Status         SessionStatus
}

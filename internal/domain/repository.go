package domain

import (
	"context"
	"time"
)

// SessionRepository defines persistence for creative sessions.
type SessionRepository interface {
	// Create persists a new session. A sessionId collision is an invariant
	// violation (ids are caller-generated UUIDs), not a user error.
	Create(ctx context.Context, session *Session) error

	// AppendImages pushes newImages (all stamped with newTurn) onto the
	// session and advances the turn counter. The update is a compare-and-swap
	// against current_turn = newTurn-1: a concurrent modification that already
	// advanced the turn makes the append fail with ErrTurnConflict instead of
	// producing lost or duplicate turn numbers. Returns ErrNotFound when the
	// session does not exist or has expired.
	AppendImages(ctx context.Context, sessionID string, newImages []GeneratedImage, newTurn int) error

	// GetByID returns the session or ErrNotFound.
	GetByID(ctx context.Context, sessionID string) (*Session, error)

	// List returns sessions newest-first plus the total count.
	List(ctx context.Context, limit, offset int) ([]Session, int, error)

	// DeleteExpired removes sessions whose expiry has passed and returns the
	// blob paths of their images so the caller can garbage-collect the files.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

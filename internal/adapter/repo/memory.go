package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"server/internal/domain"
)

// MemorySessionRepository is an in-process domain.SessionRepository. It backs
// local development when DATABASE_URL is unset and gives tests deterministic
// control over expiry through an injectable clock.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryRepository constructs a repository on the wall clock.
func NewMemoryRepository() *MemorySessionRepository {
	return NewMemoryRepositoryWithClock(time.Now)
}

// NewMemoryRepositoryWithClock constructs a repository whose notion of "now"
// comes from the given function.
func NewMemoryRepositoryWithClock(now func() time.Time) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*domain.Session),
		now:      now,
	}
}

// Create persists a new session. An id collision is an invariant violation.
func (r *MemorySessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.SessionID]; exists {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	copied := cloneSession(session)
	r.sessions[session.SessionID] = &copied
	return nil
}

// AppendImages performs the same compare-and-swap append as the Postgres
// implementation.
func (r *MemorySessionRepository) AppendImages(ctx context.Context, sessionID string, newImages []domain.GeneratedImage, newTurn int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok || !session.ExpiresAt.After(r.now()) {
		return domain.ErrNotFound
	}
	if session.CurrentTurn != newTurn-1 {
		return domain.ErrTurnConflict
	}
	session.Images = append(session.Images, newImages...)
	session.CurrentTurn = newTurn
	session.UpdatedAt = r.now()
	return nil
}

// GetByID returns a copy of the session or domain.ErrNotFound.
func (r *MemorySessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok || !session.ExpiresAt.After(r.now()) {
		return nil, domain.ErrNotFound
	}
	copied := cloneSession(session)
	return &copied, nil
}

// List returns live sessions newest-first plus the total live count.
func (r *MemorySessionRepository) List(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var live []domain.Session
	for _, session := range r.sessions {
		if session.ExpiresAt.After(r.now()) {
			live = append(live, cloneSession(session))
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})

	total := len(live)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return live[offset:end], total, nil
}

// DeleteExpired drops expired sessions and returns the blob paths they owned.
func (r *MemorySessionRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var paths []string
	for id, session := range r.sessions {
		if session.ExpiresAt.After(now) {
			continue
		}
		for _, part := range session.BaseInput {
			if part.IsImage() && part.ImageID != "" {
				paths = append(paths, part.FilePath)
			}
		}
		for _, img := range session.Images {
			paths = append(paths, img.FilePath)
			if img.SignaturePath != "" {
				paths = append(paths, img.SignaturePath)
			}
		}
		delete(r.sessions, id)
	}
	return paths, nil
}

func cloneSession(s *domain.Session) domain.Session {
	copied := *s
	copied.BaseInput = append([]domain.InputPart(nil), s.BaseInput...)
	copied.Images = append([]domain.GeneratedImage(nil), s.Images...)
	return copied
}

var _ domain.SessionRepository = (*MemorySessionRepository)(nil)

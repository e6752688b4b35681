package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// SessionRepositoryPG implements domain.SessionRepository using PostgreSQL.
// Base input and images are stored as JSONB documents; expiry is an explicit
// expires_at column swept by the maintenance loop rather than an opaque
// store-level TTL.
type SessionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a new session repository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepositoryPG {
	return &SessionRepositoryPG{pool: pool}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id   TEXT PRIMARY KEY,
    art_form     TEXT NOT NULL,
    product_type TEXT NOT NULL,
    base_input   JSONB NOT NULL DEFAULT '[]',
    images       JSONB NOT NULL DEFAULT '[]',
    current_turn INT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_created_at_idx ON sessions (created_at DESC);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);
`

// EnsureSchema creates the sessions table and indexes if they do not exist.
func (r *SessionRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure sessions schema: %w", err)
	}
	return nil
}

// Create persists a new session.
func (r *SessionRepositoryPG) Create(ctx context.Context, session *domain.Session) error {
	baseInput, err := json.Marshal(session.BaseInput)
	if err != nil {
		return fmt.Errorf("marshal base input: %w", err)
	}
	images, err := json.Marshal(session.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO sessions (session_id, art_form, product_type, base_input, images, current_turn, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8);
`, session.SessionID, session.ArtForm, session.ProductType, baseInput, images, session.CurrentTurn, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.SessionID, err)
	}
	return nil
}

// AppendImages pushes newImages onto the session and advances the turn
// counter atomically. The WHERE clause doubles as a compare-and-swap: a
// concurrent modify that already advanced the turn leaves zero rows matched.
func (r *SessionRepositoryPG) AppendImages(ctx context.Context, sessionID string, newImages []domain.GeneratedImage, newTurn int) error {
	images, err := json.Marshal(newImages)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE sessions
SET images = images || $2::jsonb, current_turn = $3, updated_at = now()
WHERE session_id = $1 AND current_turn = $3 - 1 AND expires_at > now();
`, sessionID, images, newTurn)
	if err != nil {
		return fmt.Errorf("append images to session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows matched: distinguish a missing/expired session from a lost
	// turn race.
	if _, err := r.GetByID(ctx, sessionID); err != nil {
		return err
	}
	return domain.ErrTurnConflict
}

// GetByID returns the session or domain.ErrNotFound. Expired sessions are
// invisible even before the sweeper removes them.
func (r *SessionRepositoryPG) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
SELECT session_id, art_form, product_type, base_input, images, current_turn, created_at, updated_at, expires_at
FROM sessions
WHERE session_id = $1 AND expires_at > now();
`, sessionID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return session, nil
}

// List returns live sessions newest-first plus the total live count.
func (r *SessionRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	rows, err := r.pool.Query(ctx, `
SELECT session_id, art_form, product_type, base_input, images, current_turn, created_at, updated_at, expires_at
FROM sessions
WHERE expires_at > now()
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE expires_at > now();`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// DeleteExpired removes sessions past their expiry and returns the blob
// paths of everything they referenced so the caller can garbage-collect.
func (r *SessionRepositoryPG) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
DELETE FROM sessions
WHERE expires_at <= $1
RETURNING base_input, images;
`, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var baseInputRaw, imagesRaw []byte
		if err := rows.Scan(&baseInputRaw, &imagesRaw); err != nil {
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		var baseInput []domain.InputPart
		if err := json.Unmarshal(baseInputRaw, &baseInput); err == nil {
			for _, part := range baseInput {
				// Base input may reference shared art form assets; only
				// session-owned uploads are eligible for GC.
				if part.IsImage() && part.ImageID != "" {
					paths = append(paths, part.FilePath)
				}
			}
		}
		var images []domain.GeneratedImage
		if err := json.Unmarshal(imagesRaw, &images); err == nil {
			for _, img := range images {
				paths = append(paths, img.FilePath)
				if img.SignaturePath != "" {
					paths = append(paths, img.SignaturePath)
				}
			}
		}
	}
	return paths, rows.Err()
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	var baseInputRaw, imagesRaw []byte
	if err := row.Scan(
		&session.SessionID,
		&session.ArtForm,
		&session.ProductType,
		&baseInputRaw,
		&imagesRaw,
		&session.CurrentTurn,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(baseInputRaw, &session.BaseInput); err != nil {
		return nil, fmt.Errorf("unmarshal base input: %w", err)
	}
	if err := json.Unmarshal(imagesRaw, &session.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	return &session, nil
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)

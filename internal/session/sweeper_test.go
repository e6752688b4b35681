package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
)

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
	fail    map[string]bool
}

func (f *fakeRemover) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[key] {
		return errors.New("permission denied")
	}
	f.removed = append(f.removed, key)
	return nil
}

func TestSweepOnce(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := repo.NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, &domain.Session{
		SessionID: "expired",
		Images: []domain.GeneratedImage{
			{ID: "i1", FilePath: "uploads/i1.png", SignaturePath: "uploads/i1.txt", Turn: 0},
		},
		CreatedAt: base,
		ExpiresAt: base.Add(time.Hour),
	}))
	require.NoError(t, sessions.Create(ctx, &domain.Session{
		SessionID: "live",
		Images:    []domain.GeneratedImage{{ID: "i2", FilePath: "uploads/i2.png", Turn: 0}},
		CreatedAt: base,
		ExpiresAt: base.Add(48 * time.Hour),
	}))

	remover := &fakeRemover{}
	sweeper := NewSweeper(sessions, remover, time.Minute, infra.NopLogger())

	removed, err := sweeper.SweepOnce(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"uploads/i1.png", "uploads/i1.txt"}, remover.removed)

	_, err = sessions.GetByID(ctx, "live")
	assert.NoError(t, err)
}

func TestSweepOnceSkipsFailedRemovals(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := repo.NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, &domain.Session{
		SessionID: "expired",
		Images: []domain.GeneratedImage{
			{ID: "i1", FilePath: "uploads/i1.png", Turn: 0},
			{ID: "i2", FilePath: "uploads/i2.png", Turn: 0},
		},
		CreatedAt: base,
		ExpiresAt: base.Add(time.Hour),
	}))

	remover := &fakeRemover{fail: map[string]bool{"uploads/i1.png": true}}
	sweeper := NewSweeper(sessions, remover, time.Minute, infra.NopLogger())

	removed, err := sweeper.SweepOnce(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"uploads/i2.png"}, remover.removed)
}

func TestSweepOnceNothingExpired(t *testing.T) {
	base := time.Now()
	sessions := repo.NewMemoryRepositoryWithClock(func() time.Time { return base })
	remover := &fakeRemover{}
	sweeper := NewSweeper(sessions, remover, time.Minute, infra.NopLogger())

	removed, err := sweeper.SweepOnce(context.Background(), base)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, remover.removed)
}

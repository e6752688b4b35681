package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func newTestSession(id string, createdAt time.Time) *domain.Session {
	return &domain.Session{
		SessionID:   id,
		ArtForm:     "warli",
		ProductType: "clay pot",
		BaseInput: []domain.InputPart{
			{Text: "prompt"},
			{ImageID: "ref-1", FilePath: "uploads/ref.png"},
			{FilePath: "assets/art_forms/warli/style1.png"},
		},
		Images: []domain.GeneratedImage{
			{ID: id + "-img", FilePath: "uploads/" + id + ".png", SignaturePath: "uploads/" + id + ".txt", Turn: 0},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
	}
}

func TestMemoryRepositoryCreateAndGet(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newTestSession("s1", base)))

	got, err := r.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "warli", got.ArtForm)
	assert.Equal(t, 0, got.CurrentTurn)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepositoryDuplicateCreate(t *testing.T) {
	base := time.Now()
	r := NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newTestSession("s1", base)))
	assert.Error(t, r.Create(ctx, newTestSession("s1", base)))
}

func TestMemoryRepositoryAppendImagesCAS(t *testing.T) {
	base := time.Now()
	r := NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newTestSession("s1", base)))

	next := []domain.GeneratedImage{{ID: "i2", FilePath: "uploads/i2.png", Turn: 1}}
	require.NoError(t, r.AppendImages(ctx, "s1", next, 1))

	got, err := r.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentTurn)
	assert.Len(t, got.Images, 2)

	// Replaying the same turn is a lost race.
	err = r.AppendImages(ctx, "s1", next, 1)
	assert.ErrorIs(t, err, domain.ErrTurnConflict)

	err = r.AppendImages(ctx, "missing", next, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepositoryExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRepositoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newTestSession("s1", now)))

	now = now.Add(25 * time.Hour)

	_, err := r.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = r.AppendImages(ctx, "s1", nil, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, total, err := r.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryRepositoryListPagination(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		s := newTestSession(fmt.Sprintf("s%02d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, r.Create(ctx, s))
	}

	page, total, err := r.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	require.Len(t, page, 10)
	assert.Equal(t, "s14", page[0].SessionID) // newest first

	page, total, err = r.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Len(t, page, 5)

	page, total, err = r.List(ctx, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Empty(t, page)
}

func TestMemoryRepositoryDeleteExpired(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRepositoryWithClock(func() time.Time { return base })
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newTestSession("old", base)))
	require.NoError(t, r.Create(ctx, newTestSession("new", base.Add(time.Hour))))

	paths, err := r.DeleteExpired(ctx, base.Add(24*time.Hour+time.Minute))
	require.NoError(t, err)

	// Owned blobs only: the uploaded reference, the image, the signature.
	// Shared art form assets are never garbage collected.
	assert.ElementsMatch(t, []string{"uploads/ref.png", "uploads/old.png", "uploads/old.txt"}, paths)

	_, err = r.GetByID(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.GetByID(ctx, "new")
	assert.NoError(t, err)
}

package session

import (
	"context"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// BlobRemover deletes stored blobs during expiry garbage collection.
type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

// Sweeper removes expired sessions and their blob files on an interval.
// Expiry is enforced explicitly here instead of relying on a store-level TTL
// so tests can drive it deterministically.
type Sweeper struct {
	repo     domain.SessionRepository
	store    BlobRemover
	interval time.Duration
	logger   infra.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(repo domain.SessionRepository, store BlobRemover, interval time.Duration, logger infra.Logger) *Sweeper {
	return &Sweeper{repo: repo, store: store, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.logger.Error().Err(err).Msg("sweeper: sweep failed")
			}
		}
	}
}

// SweepOnce deletes sessions expired as of now and garbage-collects their
// blobs. Returns the number of blobs removed. Blob removal failures are
// logged and skipped; the files become unreferenced garbage at worst.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	paths, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		if err := s.store.Remove(ctx, path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("sweeper: failed to remove blob")
			continue
		}
		removed++
	}

	if len(paths) > 0 {
		s.logger.Info().Int("blobs", removed).Msg("sweeper: expired sessions removed")
	}
	return removed, nil
}

package stream

import (
	"context"
	"time"

	"github.com/guttosm/coinpulse/internal/cache"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/logger"
	"github.com/guttosm/coinpulse/internal/upstream"
)

// SnapshotKey holds the latest full ticker collection for broadcasting.
const SnapshotKey = "broadcast:snapshot"

// SnapshotSource reads the broadcast snapshot from cache and refills it from
// upstream. It never touches the durable store.
type SnapshotSource struct {
	cache   cache.Store
	fetcher upstream.Client
	ttl     time.Duration
}

// NewSnapshotSource reads and refreshes the broadcast snapshot stored under
// SnapshotKey. Refreshed snapshots are written back with ttl.
func NewSnapshotSource(store cache.Store, fetcher upstream.Client, ttl time.Duration) *SnapshotSource {
	return &SnapshotSource{cache: store, fetcher: fetcher, ttl: ttl}
}

// Cached returns the stored snapshot. Empty, missing and unreadable entries
// are all reported as a miss.
func (s *SnapshotSource) Cached(ctx context.Context) ([]models.Ticker, bool) {
	var out []models.Ticker
	ok, err := cache.GetJSON(ctx, s.cache, SnapshotKey, &out)
	if err != nil {
		logger.Component(logger.ComponentCache).Warn().Err(err).Str("key", SnapshotKey).Msg("snapshot read failed")
		return nil, false
	}
	return out, ok && len(out) > 0
}

// Refresh fetches from upstream and writes a non-empty result back.
func (s *SnapshotSource) Refresh(ctx context.Context) ([]models.Ticker, error) {
	tickers, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return tickers, nil
	}
	if err := cache.SetJSON(ctx, s.cache, SnapshotKey, tickers, s.ttl); err != nil {
		logger.Component(logger.ComponentCache).Warn().Err(err).Str("key", SnapshotKey).Msg("snapshot write failed")
	}
	return tickers, nil
}

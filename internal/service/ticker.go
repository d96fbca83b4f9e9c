package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/coinpulse/internal/cache"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/logger"
	"github.com/guttosm/coinpulse/internal/storage"
	"github.com/guttosm/coinpulse/internal/upstream"
)

var (
	// ErrNotFound is returned when a ticker id is unknown to the durable store.
	ErrNotFound = errors.New("ticker not found")
	// ErrStoreUnavailable wraps every durable store failure.
	ErrStoreUnavailable = errors.New("ticker store unavailable")
	// ErrInvalidQuery is returned for arguments the handlers should have rejected.
	ErrInvalidQuery = errors.New("invalid query")
)

const (
	// ListingsTag prefixes every listing key (paginated and trending).
	ListingsTag = "tickers"

	refreshLockKey   = "lock:tickers:refresh"
	refreshFlightKey = "refresh"
)

// TickerService defines the read-through ticker API.
type TickerService interface {
	ListTickers(ctx context.Context, q models.TickerQuery) (*models.TickerPage, error)
	GetTickerByID(ctx context.Context, id string) (*models.Ticker, error)
	TrendingTickers(ctx context.Context, by models.TrendingBy, limit int) ([]models.Ticker, error)
	RefreshFromUpstream(ctx context.Context) (int, error)
	InvalidateListings(ctx context.Context) (int, error)
}

// Options tunes caching and persistence.
type Options struct {
	CacheTTL          time.Duration // listings and single tickers
	RefreshLockTTL    time.Duration // guard key lifetime; 0 disables the guard
	UpsertBatchSize   int
	UpsertParallelism int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CacheTTL:          30 * time.Second,
		RefreshLockTTL:    10 * time.Second,
		UpsertBatchSize:   500,
		UpsertParallelism: 4,
	}
}

type tickerService struct {
	repo    storage.TickersRepository
	cache   cache.Store
	fetcher upstream.Client
	opts    Options
	flights singleflight.Group
}

// NewTickerService constructs the read-through ticker service.
//
// Parameters:
//   - repo (storage.TickersRepository): durable store, the system of record.
//   - store (cache.Store): shared TTL cache; failures degrade to misses.
//   - fetcher (upstream.Client): external ticker source used on refresh.
//   - opts (Options): TTLs and upsert batching. Zero fields fall back to DefaultOptions().
//
// Returns:
//   - TickerService: ready for concurrent use.
func NewTickerService(repo storage.TickersRepository, store cache.Store, fetcher upstream.Client, opts Options) TickerService {
	def := DefaultOptions()
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.UpsertBatchSize <= 0 {
		opts.UpsertBatchSize = def.UpsertBatchSize
	}
	if opts.UpsertParallelism <= 0 {
		opts.UpsertParallelism = def.UpsertParallelism
	}
	return &tickerService{repo: repo, cache: store, fetcher: fetcher, opts: opts}
}

// ListTickers serves a page from cache, or refreshes from upstream, queries
// the durable store and caches the envelope. Concurrent misses on the same
// key share one computation.
func (s *tickerService) ListTickers(ctx context.Context, q models.TickerQuery) (*models.TickerPage, error) {
	q = q.Normalize()
	if !q.Sort.Valid() {
		return nil, fmt.Errorf("%w: sort %q", ErrInvalidQuery, q.Sort)
	}

	key := q.CacheKey()
	var cached models.TickerPage
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	v, err, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.loadPage(ctx, q, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.TickerPage), nil
}

func (s *tickerService) loadPage(ctx context.Context, q models.TickerQuery, key string) (*models.TickerPage, error) {
	log := logger.Component(logger.ComponentService)

	refreshed, err := s.refreshIfDue(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Msg("upstream refresh failed, serving stored data")
	}

	filter := storage.TickerFilter{Symbol: q.Symbol}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %w", ErrStoreUnavailable, err)
	}

	data := make([]models.Ticker, 0)
	if total > q.Skip() {
		data, err = s.repo.FindMany(ctx, filter, q.Sort, q.Skip(), q.Limit)
		if err != nil {
			return nil, fmt.Errorf("%w: find: %w", ErrStoreUnavailable, err)
		}
	}

	page := &models.TickerPage{
		Data:       data,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: models.TotalPages(total, q.Limit),
	}

	// nothing stored and nothing fetched: let the next request retry upstream
	if total == 0 && refreshed == 0 {
		log.Debug().Str("key", key).Msg("empty listing not cached")
		return page, nil
	}

	s.writeCache(ctx, key, page, s.opts.CacheTTL)
	return page, nil
}

// GetTickerByID reads through the cache to the durable store only.
func (s *tickerService) GetTickerByID(ctx context.Context, id string) (*models.Ticker, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidQuery)
	}

	key := models.TickerCacheKey(id)
	var cached models.Ticker
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	t, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %w", ErrStoreUnavailable, id, err)
	}
	if t == nil {
		return nil, ErrNotFound
	}

	s.writeCache(ctx, key, t, s.opts.CacheTTL)
	return t, nil
}

// TrendingTickers returns the top tickers by 24h volume or 24h change.
func (s *tickerService) TrendingTickers(ctx context.Context, by models.TrendingBy, limit int) ([]models.Ticker, error) {
	if by == "" {
		by = models.TrendingByVolume
	}
	if !by.Valid() {
		return nil, fmt.Errorf("%w: trending by %q", ErrInvalidQuery, by)
	}
	if limit < 1 {
		limit = models.DefaultTrendingLimit
	}
	if limit > models.MaxTrendingLimit {
		limit = models.MaxTrendingLimit
	}

	key := models.TrendingCacheKey(by, limit)
	var cached []models.Ticker
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	out, err := s.repo.FindTop(ctx, by, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: trending: %w", ErrStoreUnavailable, err)
	}
	if len(out) > 0 {
		s.writeCache(ctx, key, out, s.opts.CacheTTL)
	}
	return out, nil
}

// RefreshFromUpstream forces one fetch and upsert, bypassing the refresh guard.
// Upstream and store errors are returned to the caller.
func (s *tickerService) RefreshFromUpstream(ctx context.Context) (int, error) {
	v, err, _ := s.flights.Do(refreshFlightKey, func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// InvalidateListings drops every cached listing page.
func (s *tickerService) InvalidateListings(ctx context.Context) (int, error) {
	return s.cache.DeleteByTag(ctx, ListingsTag)
}

// refreshIfDue refreshes unless another caller, in this process or another,
// refreshed within RefreshLockTTL.
func (s *tickerService) refreshIfDue(ctx context.Context) (int, error) {
	v, err, _ := s.flights.Do(refreshFlightKey, func() (interface{}, error) {
		if s.opts.RefreshLockTTL > 0 {
			acquired, err := s.cache.SetNX(ctx, refreshLockKey, []byte("1"), s.opts.RefreshLockTTL)
			switch {
			case err != nil:
				logger.Component(logger.ComponentService).Warn().Err(err).Msg("refresh guard unavailable")
			case !acquired:
				return 0, nil
			}
		}
		return s.refresh(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// refresh fetches once. An empty fetch leaves the durable store untouched.
func (s *tickerService) refresh(ctx context.Context) (int, error) {
	tickers, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, nil
	}
	return s.upsert(ctx, tickers)
}

// upsert writes tickers in batches with bounded parallelism.
func (s *tickerService) upsert(ctx context.Context, tickers []models.Ticker) (int, error) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UpsertParallelism)

	var total atomic.Int64
	size := s.opts.UpsertBatchSize
	for lo := 0; lo < len(tickers); lo += size {
		batch := tickers[lo:min(lo+size, len(tickers))]
		g.Go(func() error {
			n, err := s.repo.UpsertMany(gctx, batch)
			if err != nil {
				return err
			}
			total.Add(int64(n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), fmt.Errorf("%w: upsert: %w", ErrStoreUnavailable, err)
	}

	logger.Component(logger.ComponentService).Info().
		Int("upserted", int(total.Load())).
		Dur("elapsed", time.Since(start)).
		Msg("tickers refreshed")
	return int(total.Load()), nil
}

// readCache reports a hit only when the value exists and decodes.
func (s *tickerService) readCache(ctx context.Context, key string, dst interface{}) bool {
	ok, err := cache.GetJSON(ctx, s.cache, key, dst)
	if err != nil {
		logger.Component(logger.ComponentCache).Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return false
	}
	return ok
}

func (s *tickerService) writeCache(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := cache.SetJSON(ctx, s.cache, key, v, ttl); err != nil {
		logger.Component(logger.ComponentCache).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

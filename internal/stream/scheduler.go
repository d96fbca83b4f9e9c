package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/logger"
)

// State is the scheduler's position within a tick.
type State int32

const (
	StateIdle State = iota
	StateTicking
	StateFetching
	StateCacheHit
	StateBroadcasting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StateFetching:
		return "fetching"
	case StateCacheHit:
		return "cache_hit"
	case StateBroadcasting:
		return "broadcasting"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Source provides the ticker collection for each tick.
type Source interface {
	Cached(ctx context.Context) ([]models.Ticker, bool)
	Refresh(ctx context.Context) ([]models.Ticker, error)
}

// Broadcaster fans a payload out to subscribers.
type Broadcaster interface {
	Broadcast(payload []byte) int
	Count() int
}

// DefaultInterval is the broadcast period.
const DefaultInterval = 10 * time.Second

// Scheduler periodically loads the snapshot and broadcasts it.
type Scheduler struct {
	source   Source
	hub      Broadcaster
	interval time.Duration
	state    atomic.Int32

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler builds a stopped scheduler that, once started, loads a
// snapshot from source every interval and broadcasts it through hub.
// A non-positive interval falls back to DefaultInterval.
func NewScheduler(source Source, hub Broadcaster, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{source: source, hub: hub, interval: interval}
}

// Start launches the tick loop. Calling it again, or after Stop, does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.stopped {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	logger.Component(logger.ComponentScheduler).Info().Dur("interval", s.interval).Msg("broadcast scheduler started")
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	logger.Component(logger.ComponentScheduler).Info().Msg("broadcast scheduler stopped")
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one load-and-broadcast cycle and returns how many subscribers
// received the payload. Failures and panics are logged and end the tick only.
func (s *Scheduler) Tick(ctx context.Context) (delivered int) {
	log := logger.Component(logger.ComponentScheduler)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("broadcast tick panicked")
			delivered = 0
		}
		s.setState(StateIdle)
	}()

	s.setState(StateTicking)
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	tickers, hit := s.source.Cached(ctx)
	if hit {
		s.setState(StateCacheHit)
	} else {
		s.setState(StateFetching)
		var err error
		tickers, err = s.source.Refresh(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot refresh failed, skipping tick")
			return 0
		}
	}

	if len(tickers) == 0 {
		log.Debug().Msg("empty snapshot, skipping tick")
		return 0
	}
	if s.hub.Count() == 0 {
		return 0
	}

	payload, err := dto.TickersPayload(tickers)
	if err != nil {
		log.Error().Err(err).Msg("encode snapshot")
		return 0
	}

	s.setState(StateBroadcasting)
	delivered = s.hub.Broadcast(payload)
	log.Debug().Bool("cache_hit", hit).Int("tickers", len(tickers)).Int("delivered", delivered).Msg("snapshot broadcast")
	return delivered
}

// setState moves to next unless the scheduler has been stopped.
func (s *Scheduler) setState(next State) {
	for {
		cur := s.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if s.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

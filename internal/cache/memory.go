package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	expireAt time.Time // zero means no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily on
// read and periodically by a janitor goroutine.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]entry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
	closed  bool
	janitor time.Duration
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now. Intended for tests that need to move time.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithJanitorInterval sets how often expired entries are swept.
// Zero disables the janitor.
func WithJanitorInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.janitor = d }
}

// NewMemoryStore returns a ready MemoryStore. Close stops its janitor.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items:   make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		janitor: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.janitor > 0 {
		go s.sweepLoop()
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrClosed
	}
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expired(s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = s.newEntry(value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if e, ok := s.items[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	s.items[key] = s.newEntry(value, ttl)
	return true, nil
}

// DeletePattern accepts Redis MATCH syntax ('*', '?', '[...]', '[^...]').
// Like Redis, '*' matches across '/'.
func (s *MemoryStore) DeletePattern(_ context.Context, pattern string) (int, error) {
	g, err := compilePattern(pattern)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	now := s.now()
	removed := 0
	for k, e := range s.items {
		if !g.Match(k) {
			continue
		}
		delete(s.items, k)
		if !e.expired(now) {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	if strings.ContainsAny(tag, "*?[\\") {
		return s.DeletePattern(ctx, TagPattern(tag))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	now := s.now()
	removed := 0
	for k, e := range s.items {
		if !strings.HasPrefix(k, tag) {
			continue
		}
		delete(s.items, k)
		if !e.expired(now) {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.items = make(map[string]entry)
		s.mu.Unlock()
		close(s.stop)
	})
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) newEntry(value []byte, ttl time.Duration) entry {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	return e
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.janitor)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if e.expired(now) {
			delete(s.items, k)
		}
	}
}

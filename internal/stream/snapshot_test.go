package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guttosm/coinpulse/internal/cache"
	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/upstream"
)

type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	tickers []models.Ticker
	err     error
}

func (f *countingFetcher) Fetch(context.Context) ([]models.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tickers, f.err
}

func (f *countingFetcher) FetchByID(context.Context, string) (*models.Ticker, error) {
	return nil, nil
}

var _ upstream.Client = (*countingFetcher)(nil)

func TestSnapshotSource(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh writes back", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithJanitorInterval(0))
		defer store.Close()
		src := NewSnapshotSource(store, &countingFetcher{tickers: sample}, time.Minute)

		if _, ok := src.Cached(ctx); ok {
			t.Fatalf("cold cache must miss")
		}
		out, err := src.Refresh(ctx)
		if err != nil || len(out) != 2 {
			t.Fatalf("out=%v err=%v", out, err)
		}
		got, ok := src.Cached(ctx)
		if !ok || len(got) != 2 || got[0].ID != "btc-bitcoin" {
			t.Fatalf("snapshot not cached: ok=%v got=%v", ok, got)
		}
	})

	t.Run("empty fetch is not written", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithJanitorInterval(0))
		defer store.Close()
		src := NewSnapshotSource(store, &countingFetcher{tickers: []models.Ticker{}}, time.Minute)
		if _, err := src.Refresh(ctx); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if store.Len() != 0 {
			t.Fatalf("empty snapshot must not be stored")
		}
	})

	t.Run("fetch error propagates", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithJanitorInterval(0))
		defer store.Close()
		src := NewSnapshotSource(store, &countingFetcher{err: upstream.ErrMalformedResponse}, time.Minute)
		if _, err := src.Refresh(ctx); !errors.Is(err, upstream.ErrMalformedResponse) {
			t.Fatalf("want malformed, got %v", err)
		}
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithJanitorInterval(0))
		defer store.Close()
		_ = store.Set(ctx, SnapshotKey, []byte("not json"), time.Minute)
		if _, ok := NewSnapshotSource(store, &countingFetcher{}, time.Minute).Cached(ctx); ok {
			t.Fatalf("corrupt snapshot must miss")
		}
	})
}

// TestLiveChannel_EndToEnd drives a real WebSocket through the hub: the first
// tick fetches and broadcasts, the next one reuses the cache, and a late
// joiner receives the cached snapshot right after the greeting.
func TestLiveChannel_EndToEnd(t *testing.T) {
	store := cache.NewMemoryStore(cache.WithJanitorInterval(0))
	defer store.Close()
	fetcher := &countingFetcher{tickers: sample}
	src := NewSnapshotSource(store, fetcher, time.Minute)
	hub := NewHub(src, DefaultHubOptions())
	defer hub.Close()
	sched := NewScheduler(src, hub, time.Second)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), conn)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	dial := func() *websocket.Conn {
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		return c
	}
	read := func(c *websocket.Conn) dto.StreamMessage {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var m dto.StreamMessage
		if err := c.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	first := dial()
	defer first.Close()
	if m := read(first); m.Type != dto.MessageTypeInfo || m.Message != dto.ConnectedMessage {
		t.Fatalf("unexpected greeting %+v", m)
	}
	eventually(t, "registration", func() bool { return hub.Count() == 1 })

	if n := sched.Tick(context.Background()); n != 1 {
		t.Fatalf("first tick delivered=%d", n)
	}
	if m := read(first); m.Type != dto.MessageTypeTickers || len(m.Data) != 2 {
		t.Fatalf("unexpected frame %+v", m)
	}

	sched.Tick(context.Background())
	if fetcher.calls != 1 {
		t.Fatalf("second tick must hit the snapshot cache, fetches=%d", fetcher.calls)
	}
	_ = read(first)

	late := dial()
	defer late.Close()
	if m := read(late); m.Type != dto.MessageTypeInfo {
		t.Fatalf("late joiner greeting %+v", m)
	}
	if m := read(late); m.Type != dto.MessageTypeTickers || len(m.Data) != 2 {
		t.Fatalf("late joiner must get the cached snapshot, got %+v", m)
	}
}

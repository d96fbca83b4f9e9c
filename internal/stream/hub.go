// Package stream pushes ticker snapshots to live WebSocket subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/logger"
)

// Conn is the part of *websocket.Conn the hub relies on.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// SnapshotReader supplies the snapshot sent to subscribers when they join.
type SnapshotReader interface {
	Cached(ctx context.Context) ([]models.Ticker, bool)
}

// HubOptions tunes per-subscriber queues and keep-alives.
type HubOptions struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration // must be shorter than PongWait
}

// DefaultHubOptions returns a 16-frame send queue, a 10s write deadline and
// pings every 54s against a 60s pong wait.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		SendBuffer: 16,
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
	}
}

type subscriber struct {
	id   string
	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) enqueue(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the registry of live subscribers. A failing subscriber is removed
// without affecting the others.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]*subscriber
	closed   bool
	snapshot SnapshotReader
	opts     HubOptions
}

// NewHub builds an empty hub. snapshot may be nil.
func NewHub(snapshot SnapshotReader, opts HubOptions) *Hub {
	def := DefaultHubOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	return &Hub{
		subs:     make(map[string]*subscriber),
		snapshot: snapshot,
		opts:     opts,
	}
}

// Serve registers conn, queues the greeting and the current snapshot, and
// blocks until the connection ends.
func (h *Hub) Serve(ctx context.Context, conn Conn) {
	log := logger.Component(logger.ComponentHub)
	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		done: make(chan struct{}),
	}

	sub.enqueue(dto.InfoPayload())
	if h.snapshot != nil {
		if tickers, ok := h.snapshot.Cached(ctx); ok {
			if b, err := dto.TickersPayload(tickers); err == nil {
				sub.enqueue(b)
			}
		}
	}

	if !h.register(sub) {
		_ = conn.Close()
		return
	}
	log.Info().Str("subscriber", sub.id).Int("subscribers", h.Count()).Msg("subscriber joined")

	go h.writePump(sub)
	h.readPump(sub)

	h.remove(sub)
	log.Info().Str("subscriber", sub.id).Int("subscribers", h.Count()).Msg("subscriber left")
}

// Broadcast queues payload for every subscriber and returns how many accepted
// it. Subscribers whose queue is full are dropped.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if s.enqueue(payload) {
			delivered++
			continue
		}
		logger.Component(logger.ComponentHub).Warn().Str("subscriber", s.id).Msg("send queue full, dropping subscriber")
		h.remove(s)
	}
	return delivered
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (h *Hub) register(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[s.id] = s
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if cur, ok := h.subs[s.id]; ok && cur == s {
		delete(h.subs, s.id)
	}
	h.mu.Unlock()
	s.stop()
}

// writePump is the only writer on the connection and owns closing it.
func (h *Hub) writePump(s *subscriber) {
	ping := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Component(logger.ComponentHub).Warn().Err(err).Str("subscriber", s.id).Msg("write failed, dropping subscriber")
				h.remove(s)
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump discards inbound frames and keeps the read deadline alive on pongs.
func (h *Hub) readPump(s *subscriber) {
	_ = s.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Component(logger.ComponentHub).Debug().Err(err).Str("subscriber", s.id).Msg("read ended")
			}
			return
		}
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/guttosm/coinpulse/internal/logger"
	"github.com/guttosm/coinpulse/internal/stream"
)

// Subscriptions is the registry live connections are handed to.
type Subscriptions interface {
	Serve(ctx context.Context, conn stream.Conn)
}

// StreamHandler upgrades HTTP requests to the live ticker channel.
type StreamHandler struct {
	subs     Subscriptions
	upgrader websocket.Upgrader
}

// NewStreamHandler builds a handler that accepts any origin.
func NewStreamHandler(subs Subscriptions) *StreamHandler {
	return &StreamHandler{
		subs: subs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws. It blocks for the lifetime of the connection.
//
// Serve godoc
// @Summary      Live ticker channel
// @Description  WebSocket upgrade. Sends {"type":"info"} on connect, then {"type":"tickers","data":[...]} every broadcast interval
// @Tags         stream
// @Success      101  {object}  dto.StreamMessage  "Switching Protocols"
// @Router       /ws [get]
func (h *StreamHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logger.L().Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	// the request deadline must not bound the connection
	h.subs.Serve(context.WithoutCancel(c.Request.Context()), conn)
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/stream"
)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockTickerService{
		page:     &models.TickerPage{Data: []models.Ticker{btc}, Page: 1, Limit: 20, Total: 1, TotalPages: 1},
		ticker:   &btc,
		trending: []models.Ticker{btc},
	}
	r := NewRouter(NewHandler(svc), nil)

	cases := []struct {
		name string
		path string
		want int
	}{
		{name: "list", path: "/api/v1/tickers?limit=5", want: http.StatusOK},
		{name: "trending is not an id", path: "/api/v1/tickers/trending", want: http.StatusOK},
		{name: "by id", path: "/api/v1/tickers/btc-bitcoin", want: http.StatusOK},
		{name: "unknown route", path: "/api/v2/tickers", want: http.StatusNotFound},
		{name: "ws disabled", path: "/ws", want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			// Ensure RequestID middleware injected header
			if w.Header().Get("X-Request-ID") == "" {
				t.Fatalf("expected X-Request-ID header to be set")
			}
		})
	}

	if svc.gotID != "btc-bitcoin" || svc.gotQuery.Limit != 5 {
		t.Fatalf("handlers not reached: id=%q query=%+v", svc.gotID, svc.gotQuery)
	}
}

func TestNewRouter_LiveChannel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := stream.NewHub(nil, stream.DefaultHubOptions())
	defer hub.Close()
	srv := httptest.NewServer(NewRouter(NewHandler(&mockTickerService{}), NewStreamHandler(hub)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg dto.StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != dto.MessageTypeInfo || msg.Message != dto.ConnectedMessage {
		t.Fatalf("unexpected greeting %s err=%v", raw, err)
	}
}

func TestStreamHandler_RejectsPlainHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := stream.NewHub(nil, stream.DefaultHubOptions())
	defer hub.Close()

	r := gin.New()
	r.GET("/ws", NewStreamHandler(hub).Serve)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-upgrade request, got %d", w.Code)
	}
	if hub.Count() != 0 {
		t.Fatalf("no subscriber should be registered")
	}
}

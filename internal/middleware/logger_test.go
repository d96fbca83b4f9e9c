package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/coinpulse/internal/logger"
)

func TestToString(t *testing.T) {
	if s := toString(nil); s != "" {
		t.Fatalf("nil -> %q, want empty", s)
	}
	if s := toString("abc"); s != "abc" {
		t.Fatalf("string -> %q, want 'abc'", s)
	}
	if s := toString(123); s != "" {
		t.Fatalf("non-string -> %q, want empty", s)
	}
}

func TestRequestLogger(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success logs at info", status: http.StatusOK, wantLevel: "info"},
		{name: "client error logs at info", status: http.StatusNotFound, wantLevel: "info"},
		{name: "server error logs at error", status: http.StatusServiceUnavailable, wantLevel: "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger.SetOutput(&buf, zerolog.InfoLevel)
			t.Cleanup(logger.Init)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestID(), RequestLogger())
			router.GET("/api/v1/tickers", func(c *gin.Context) { c.String(tc.status, "body") })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tickers", nil)
			req.Header.Set(RequestIDHeader, "req-42")
			router.ServeHTTP(w, req)

			var line map[string]any
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}
			if line["level"] != tc.wantLevel {
				t.Fatalf("level=%v want %s", line["level"], tc.wantLevel)
			}
			if line["request_id"] != "req-42" || line["path"] != "/api/v1/tickers" || line["status"] != float64(tc.status) {
				t.Fatalf("unexpected fields %v", line)
			}
			if line["component"] != logger.ComponentHTTP || line["bytes"] != float64(4) {
				t.Fatalf("unexpected fields %v", line)
			}
		})
	}
}

package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/coinpulse/internal/middleware"
)

// NewRouter creates a Gin engine with routes configured.
// It receives handler instances with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling (10 seconds).
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1) and the live channel (/ws).
//   - Answers unknown routes with a JSON 404.
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
//
// Parameters:
//   - handler (*Handler): The HTTP handler with business logic.
//   - live (*StreamHandler): WebSocket handler; nil disables /ws.
//
// Returns:
//   - *gin.Engine: Configured Gin router.
func NewRouter(handler *Handler, live *StreamHandler) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
	)

	// ─── Timeout ──────────────────────────────────
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.GET("/tickers", handler.ListTickers)
		v1.GET("/tickers/trending", handler.TrendingTickers)
		v1.GET("/tickers/:id", handler.GetTicker)
	}

	// ─── Live channel ─────────────────────────────
	if live != nil {
		router.GET("/ws", live.Serve)
	}

	router.NoRoute(middleware.NotFound)

	return router
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (database required, cache reported).
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	timeout time.Duration
}

// NewHealthHandler constructs a HealthHandler.
//
// Parameters:
//   - db (Pinger): durable store; when down /readyz answers 503.
//   - cache (Pinger): shared cache; when down /readyz answers 200 "degraded". May be nil.
//
// Returns:
//   - *HealthHandler: A new handler instance.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, timeout: 2 * time.Second}
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Register mounts the health and readiness endpoints into the provided Gin router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: 200 "ready" or "degraded" (cache down), 503 "unavailable" (database down).
//
// Parameters:
//   - r (*gin.Engine): The Gin router to register routes on.
func (h *HealthHandler) Register(r *gin.Engine) {
	// Liveness probe (just checks if the service is up)
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness probe (checks DB and cache)
	// @Summary      Readiness probe
	// @Description  Reports database and cache reachability; 503 only when the database is down
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  api.ReadinessResponse
	// @Failure      503  {object}  api.ReadinessResponse
	// @Router       /readyz [get]
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:     "ready",
		Components: map[string]string{},
		Timestamp:  time.Now().UTC(),
	}
	code := http.StatusOK

	resp.Components["database"] = componentStatus(ctx, h.db)
	if resp.Components["database"] == "down" {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		resp.Components["cache"] = componentStatus(ctx, h.cache)
		if resp.Components["cache"] == "down" && code == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	c.JSON(code, resp)
}

func componentStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "unknown"
	}
	if err := p.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}

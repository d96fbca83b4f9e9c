package main

//
//  @title           coinpulse API
//  @version         1.0
//  @description     Crypto ticker aggregation: cached REST reads and a live WebSocket broadcast.
//  @termsOfService  https://github.com/guttosm/coinpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/coinpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        tickers
//  @tag.description Paginated ticker reads backed by the cache and PostgreSQL
//
//  @tag.name        stream
//  @tag.description Live ticker broadcast over WebSocket
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/coinpulse/config"
	_ "github.com/guttosm/coinpulse/docs" // swagger docs
	"github.com/guttosm/coinpulse/internal/app"
	"github.com/guttosm/coinpulse/internal/logger"
	"github.com/guttosm/coinpulse/internal/service"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback that stops the broadcast loop and releases connections.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runRefresh pulls the upstream listing into PostgreSQL once and, when purge
// is set, drops every cached listing so the next read sees the new data.
func runRefresh(ctx context.Context, svc service.TickerService, purge bool) error {
	n, err := svc.RefreshFromUpstream(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	logger.L().Info().Int("upserted", n).Msg("upstream refresh completed")

	if !purge {
		return nil
	}
	removed, err := svc.InvalidateListings(ctx)
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	logger.L().Info().Int("removed", removed).Msg("cached listings purged")
	return nil
}

// main is the entry point of the coinpulse application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the REST API, the live WebSocket channel and the broadcast loop.
//   - refresh: Fetches the upstream listing once and upserts it into PostgreSQL.
//   - migrate: Applies the embedded database migrations and exits.
//
// Flags:
//   - --mode:  Execution mode ("api", "refresh" or "migrate"). Default: "api".
//   - --port:  Port for the API server. Defaults to value from config (SERVER_PORT).
//   - --purge: In refresh mode, also drop cached listings.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: api, refresh or migrate")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	purge := flag.Bool("purge", false, "Refresh mode: invalidate cached listings afterwards")
	flag.Parse()

	switch *mode {
	case "migrate":
		logger.L().Info().Msg("applying migrations")
		if err := app.Migrate(config.AppConfig); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("migrations applied")

	case "refresh":
		// One-shot upstream pull, suitable for cron
		logger.L().Info().Msg("running upstream refresh")

		svc, cleanup, err := app.InitializeRefresher(ctx, config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("refresher init error")
		}
		err = runRefresh(ctx, svc, *purge)
		cleanup()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("refresh failed")
		}

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp(ctx, config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

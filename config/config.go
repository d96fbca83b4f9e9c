package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// HTTP server, PostgreSQL (system of record), Redis (shared cache), the upstream
// ticker source and the live broadcast loop.
//
// Example ENV equivalent:
//
//	APP_ENV=development
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=coinpulse
//	REDIS_ADDR=localhost:6379
//	UPSTREAM_URL=https://api.coinpaprika.com/v1/tickers
//	CACHE_TTL=30s
//	SNAPSHOT_TTL=60s
//	BROADCAST_INTERVAL=10s
type Config struct {
	Env       string          // Deployment environment ("development", "production")
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Redis     RedisConfig     // Redis connection settings
	Upstream  UpstreamConfig  // External ticker source
	Cache     CacheConfig     // TTLs per cache key class
	Broadcast BroadcastConfig // Live channel settings
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitMax    int           // Requests allowed per client IP per window
	RateLimitWindow time.Duration // Rate limiting window
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - AutoMigrate: apply embedded migrations on API startup.
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
	URL         string
}

// RedisConfig defines connection details for the shared cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// UpstreamConfig points at the external ticker source.
type UpstreamConfig struct {
	URL     string
	Timeout time.Duration
}

// CacheConfig holds the TTL of each cache key class.
//
// Fields:
//   - TTL: query results and single tickers.
//   - SnapshotTTL: the broadcast snapshot. Should not be shorter than the broadcast interval.
//   - RefreshLockTTL: lifetime of the refresh guard key.
type CacheConfig struct {
	TTL            time.Duration
	SnapshotTTL    time.Duration
	RefreshLockTTL time.Duration
}

// BroadcastConfig holds the live channel settings.
type BroadcastConfig struct {
	Interval time.Duration
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and handed to app.InitializeApp by main.
var AppConfig Config

// IsProduction reports whether the service runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_MAX", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "15m")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "coinpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_AUTO_MIGRATE", true)

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("UPSTREAM_URL", "https://api.coinpaprika.com/v1/tickers")
	viper.SetDefault("UPSTREAM_TIMEOUT", "8s")

	viper.SetDefault("CACHE_TTL", "30s")
	viper.SetDefault("SNAPSHOT_TTL", "60s")
	viper.SetDefault("REFRESH_LOCK_TTL", "10s")
	viper.SetDefault("BROADCAST_INTERVAL", "10s")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Env: viper.GetString("APP_ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			RateLimitMax:    viper.GetInt("RATE_LIMIT_MAX"),
			RateLimitWindow: viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Postgres: PostgresConfig{
			Host:        viper.GetString("POSTGRES_HOST"),
			Port:        viper.GetInt("POSTGRES_PORT"),
			User:        viper.GetString("POSTGRES_USER"),
			Password:    viper.GetString("POSTGRES_PASSWORD"),
			DBName:      viper.GetString("POSTGRES_DB"),
			SSLMode:     viper.GetString("POSTGRES_SSLMODE"),
			AutoMigrate: viper.GetBool("POSTGRES_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Upstream: UpstreamConfig{
			URL:     viper.GetString("UPSTREAM_URL"),
			Timeout: viper.GetDuration("UPSTREAM_TIMEOUT"),
		},
		Cache: CacheConfig{
			TTL:            viper.GetDuration("CACHE_TTL"),
			SnapshotTTL:    viper.GetDuration("SNAPSHOT_TTL"),
			RefreshLockTTL: viper.GetDuration("REFRESH_LOCK_TTL"),
		},
		Broadcast: BroadcastConfig{
			Interval: viper.GetDuration("BROADCAST_INTERVAL"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing or inconsistent.
//
// Behavior:
//   - Checks each critical field of AppConfig.
//   - Collects missing ones in a slice.
//   - If any are missing, logs them and terminates the app with log.Fatalf().
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if AppConfig.Upstream.URL == "" {
		missing = append(missing, "UPSTREAM_URL")
	}
	if AppConfig.Upstream.Timeout <= 0 {
		missing = append(missing, "UPSTREAM_TIMEOUT")
	}
	if AppConfig.Cache.TTL <= 0 {
		missing = append(missing, "CACHE_TTL")
	}
	if AppConfig.Broadcast.Interval <= 0 {
		missing = append(missing, "BROADCAST_INTERVAL")
	}

	if len(missing) > 0 {
		log.Fatalf("❌ Missing required environment variables: %v\n", missing)
	}

	if err := AppConfig.checkTTLs(); err != nil {
		log.Fatalf("❌ %v\n", err)
	}
}

// checkTTLs verifies the relations between TTLs that keep refreshes flowing:
//   - SNAPSHOT_TTL >= BROADCAST_INTERVAL, or every tick misses and fetches upstream.
//   - REFRESH_LOCK_TTL <= CACHE_TTL, or an expired listing is rebuilt from the
//     store while the guard still blocks the upstream refresh.
func (c Config) checkTTLs() error {
	if c.Cache.SnapshotTTL < c.Broadcast.Interval {
		return fmt.Errorf("SNAPSHOT_TTL (%s) must not be shorter than BROADCAST_INTERVAL (%s)",
			c.Cache.SnapshotTTL, c.Broadcast.Interval)
	}
	if c.Cache.RefreshLockTTL > c.Cache.TTL {
		return fmt.Errorf("REFRESH_LOCK_TTL (%s) must not be longer than CACHE_TTL (%s)",
			c.Cache.RefreshLockTTL, c.Cache.TTL)
	}
	return nil
}

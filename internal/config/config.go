// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// --------------------------------------------------------------------------
// Table names, matching internal/db/migrations
// --------------------------------------------------------------------------

const (
	PlayersTable     = "players"
	PlayerStatsTable = "player_stats"
	TeamsTable       = "teams"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	DBPoolMinConns int           `envconfig:"DB_POOL_MIN_CONNS" default:"1"`
	DBPoolMaxConns int           `envconfig:"DB_POOL_MAX_CONNS" default:"5"`
	DBPoolMaxLife  time.Duration `envconfig:"DB_POOL_MAX_LIFE" default:"30m"`
	StoreBackend   string        `envconfig:"STORE_BACKEND" default:"postgres"`

	// Roster/stats provider (BallDontLie)
	BDLAPIKey  string `envconfig:"BALLDONTLIE_API_KEY"`
	BDLBaseURL string `envconfig:"BALLDONTLIE_BASE_URL" default:"https://api.balldontlie.io/v1"`
	BDLRPM     int    `envconfig:"BALLDONTLIE_RPM" default:"60"`

	// League directory + headshot CDN
	DirectoryURL    string `envconfig:"NBA_DIRECTORY_URL" default:"https://stats.nba.com/stats/playerindex"`
	HeadshotBaseURL string `envconfig:"NBA_HEADSHOT_BASE_URL" default:"https://cdn.nba.com/headshots/nba/latest/1040x760"`

	// Supabase (object storage, optional PostgREST store)
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`
	StorageBucket      string `envconfig:"STORAGE_BUCKET" default:"player-images"`

	// Sync tuning
	SyncPageSize         int           `envconfig:"SYNC_PAGE_SIZE" default:"25"`
	SyncTeamScanPageSize int           `envconfig:"SYNC_TEAM_SCAN_PAGE_SIZE" default:"100"`
	SyncPageDelay        time.Duration `envconfig:"SYNC_PAGE_DELAY" default:"100ms"`
	SyncSeason           int           `envconfig:"SYNC_SEASON" default:"0"` // 0 = current season

	// Cache
	RedisURL     string `envconfig:"REDIS_URL"`
	CacheEnabled bool   `envconfig:"CACHE_ENABLED" default:"true"`

	// Admin API server
	APIHost          string   `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort          int      `envconfig:"API_PORT" default:"8000"`
	AdminToken       string   `envconfig:"ADMIN_TOKEN"`
	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`

	// Rate limiting
	RateLimitEnabled  bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`

	// Background triggers
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"false"`
	SyncCron        string `envconfig:"SYNC_CRON" default:"0 9 * * *"`
	EnableListener  bool   `envconfig:"ENABLE_LISTENER" default:"false"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables, loading .env first if
// it exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or exits. Use in main().
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", StorePostgres)
		}
	case StoreSupabase:
		if !c.HasSupabase() {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the %s store", StoreSupabase)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.SyncPageSize < 1 || c.SyncPageSize > 100 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 100, got %d", c.SyncPageSize)
	}
	if c.SyncTeamScanPageSize < 1 || c.SyncTeamScanPageSize > 100 {
		return fmt.Errorf("SYNC_TEAM_SCAN_PAGE_SIZE must be between 1 and 100, got %d", c.SyncTeamScanPageSize)
	}
	if c.SyncPageDelay < 0 {
		return fmt.Errorf("SYNC_PAGE_DELAY must not be negative")
	}
	if c.BDLRPM < 1 {
		return fmt.Errorf("BALLDONTLIE_RPM must be positive")
	}
	if c.IsProduction() && c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN must be set in production")
	}
	return nil
}

// HasSupabase reports whether Supabase credentials are configured.
func (c *Config) HasSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Season returns the configured season, or the current NBA season when unset.
// NBA seasons are keyed by the year they start; October onwards belongs to
// the new season.
func (c *Config) Season(now time.Time) int {
	if c.SyncSeason > 0 {
		return c.SyncSeason
	}
	return CurrentSeason(now)
}

// CurrentSeason returns the NBA season that is active at now.
func CurrentSeason(now time.Time) int {
	if now.Month() >= time.October {
		return now.Year()
	}
	return now.Year() - 1
}

// MigrationURL rewrites DatabaseURL to the pgx5:// scheme golang-migrate uses.
func (c *Config) MigrationURL() string {
	u := c.DatabaseURL
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(u, prefix) {
			return "pgx5://" + strings.TrimPrefix(u, prefix)
		}
	}
	return u
}

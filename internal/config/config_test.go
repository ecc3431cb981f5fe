package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/hoops")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, 25, cfg.SyncPageSize)
	assert.Equal(t, 100, cfg.SyncTeamScanPageSize)
	assert.Equal(t, 100*time.Millisecond, cfg.SyncPageDelay)
	assert.Equal(t, "player-images", cfg.StorageBucket)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowOrigins)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DatabaseURL:          "postgres://localhost/hoops",
			StoreBackend:         StorePostgres,
			SyncPageSize:         25,
			SyncTeamScanPageSize: 100,
			BDLRPM:               60,
			AppEnv:               "development",
		}
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("postgres without url", func(t *testing.T) {
		cfg := base()
		cfg.DatabaseURL = ""
		assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")
	})

	t.Run("supabase without credentials", func(t *testing.T) {
		cfg := base()
		cfg.StoreBackend = StoreSupabase
		assert.ErrorContains(t, cfg.Validate(), "SUPABASE_URL")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.StoreBackend = "sqlite"
		assert.Error(t, cfg.Validate())
	})

	t.Run("page size out of range", func(t *testing.T) {
		cfg := base()
		cfg.SyncPageSize = 0
		assert.Error(t, cfg.Validate())
		cfg.SyncPageSize = 101
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires admin token", func(t *testing.T) {
		cfg := base()
		cfg.AppEnv = "production"
		assert.ErrorContains(t, cfg.Validate(), "ADMIN_TOKEN")
		cfg.AdminToken = "secret"
		assert.NoError(t, cfg.Validate())
	})
}

func TestCurrentSeason(t *testing.T) {
	assert.Equal(t, 2024, CurrentSeason(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2025, CurrentSeason(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)))

	cfg := Config{SyncSeason: 2019}
	assert.Equal(t, 2019, cfg.Season(time.Now()))
}

func TestMigrationURL(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://u:p@db:5432/hoops?sslmode=disable"}
	assert.Equal(t, "pgx5://u:p@db:5432/hoops?sslmode=disable", cfg.MigrationURL())

	cfg.DatabaseURL = "postgresql://db/hoops"
	assert.Equal(t, "pgx5://db/hoops", cfg.MigrationURL())
}

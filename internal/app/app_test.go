package app

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/hoopsync/internal/cache"
	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/db"
	"github.com/albapepper/hoopsync/internal/runner"
)

func TestNewLogger_JSONAndHub(t *testing.T) {
	cfg := &config.Config{AppEnv: "production", LogLevel: "warn"}
	var stdout bytes.Buffer
	hub := runner.NewLogHub(10)

	logger := NewLogger(cfg, &stdout, hub)
	logger.Info().Msg("dropped")
	logger.Warn().Int("player_id", 7).Msg("Headshot not found")

	assert.NotContains(t, stdout.String(), "dropped")
	assert.Contains(t, stdout.String(), `"level":"warn"`)
	lines := hub.Recent(0)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Headshot not found")
	assert.Contains(t, lines[0], "player_id=7")
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	cfg := &config.Config{AppEnv: "production", LogLevel: "loud"}
	logger := NewLogger(cfg, &bytes.Buffer{}, nil)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestBuild_RequiresAPIKey(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{}, runner.NewLogHub(1), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BALLDONTLIE_API_KEY")
}

func TestBuild_SupabaseStoreWithoutDatabase(t *testing.T) {
	cfg := &config.Config{
		BDLAPIKey:            "key",
		BDLBaseURL:           "http://127.0.0.1:1",
		BDLRPM:               60,
		StoreBackend:         config.StoreSupabase,
		SupabaseURL:          "http://127.0.0.1:1",
		SupabaseServiceKey:   "service-key",
		StorageBucket:        "player-images",
		CacheEnabled:         true,
		SyncPageSize:         25,
		SyncTeamScanPageSize: 100,
	}

	a, err := Build(context.Background(), cfg, runner.NewLogHub(1), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pool)
	assert.IsType(t, &cache.Memory{}, a.Cache)
	assert.NotNil(t, a.Store)
	assert.False(t, a.Runner.IsSyncing())
}

func TestBuild_PostgresStoreNeedsDatabase(t *testing.T) {
	cfg := &config.Config{BDLAPIKey: "key", StoreBackend: config.StorePostgres}
	_, err := Build(context.Background(), cfg, runner.NewLogHub(1), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestBuild_AppliesMigrations(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := &config.Config{
		BDLAPIKey:      "key",
		StoreBackend:   config.StorePostgres,
		DatabaseURL:    url,
		DBPoolMinConns: 1,
		DBPoolMaxConns: 2,
	}

	a, err := Build(context.Background(), cfg, runner.NewLogHub(1), zerolog.Nop())
	require.NoError(t, err, "migrations run before statements are prepared")
	defer a.Close()

	m, err := db.NewMigrator(cfg.MigrationURL())
	require.NoError(t, err)
	defer m.Close()
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.NotZero(t, version)
	assert.False(t, dirty)

	_, err = a.Pool.Counts(context.Background())
	assert.NoError(t, err)
}

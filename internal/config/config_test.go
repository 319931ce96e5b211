package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/geocoin/internal/game"
	"github.com/talgya/geocoin/internal/persistence"
)

func TestDefaultsMatchSession(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, game.DefaultConfig(), cfg.Session())
	assert.Equal(t, persistence.DriverSQLite, cfg.Store.Driver)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
server:
  addr: ":9090"
  cors_origins: ["https://play.example"]
store:
  driver: bolt
  path: /tmp/slots.bolt
game:
  seed: 7
  grid_radius: 4
  origin_lat: 36.98949379578401
  origin_lng: -122.06277128548504
`), 0o644))

	t.Setenv("GEOCOIN_SERVER_ADDR", ":7070")
	t.Setenv("GEOCOIN_GAME_LUCK", "noise")
	t.Setenv("GEOCOIN_SERVER_ADMIN_KEY", "k")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":7070", cfg.Server.Addr, "env overrides the file")
	assert.Equal(t, "k", cfg.Server.AdminKey)
	assert.Equal(t, []string{"https://play.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, persistence.DriverBolt, cfg.Store.Driver)
	assert.Equal(t, int64(7), cfg.Game.Seed)
	assert.Equal(t, "noise", cfg.Game.Luck)
	assert.Equal(t, 4, cfg.Session().Gen.Radius)
	assert.InDelta(t, 36.98949379578401, cfg.Session().Origin.Lat, 1e-12)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.1, cfg.Game.SpawnProbability)
	assert.True(t, cfg.Game.HibernateOnMove)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"driver":    {"GEOCOIN_STORE_DRIVER", "postgres"},
		"luck":      {"GEOCOIN_GAME_LUCK", "dice"},
		"level":     {"GEOCOIN_LOG_LEVEL", "loud"},
		"spawn":     {"GEOCOIN_GAME_SPAWN_PROBABILITY", "1.5"},
		"step":      {"GEOCOIN_GAME_STEP_CELLS", "0"},
		"origin":    {"GEOCOIN_GAME_ORIGIN_LAT", "120"},
		"malformed": {"GEOCOIN_GAME_SEED", "seven"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

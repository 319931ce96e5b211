// Package config loads server and game settings: built-in defaults, then an
// optional YAML file, then GEOCOIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/geocoin/internal/game"
	"github.com/talgya/geocoin/internal/luck"
	"github.com/talgya/geocoin/internal/persistence"
	"github.com/talgya/geocoin/internal/world"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "GEOCOIN_"

// Config is the full application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	Server   Server `yaml:"server" envPrefix:"SERVER_"`
	Store    Store  `yaml:"store" envPrefix:"STORE_"`
	Game     Game   `yaml:"game" envPrefix:"GAME_"`
}

// Server configures the HTTP API.
type Server struct {
	Addr        string   `yaml:"addr" env:"ADDR"`
	AdminKey    string   `yaml:"admin_key" env:"ADMIN_KEY"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	ResetLimit  int      `yaml:"reset_limit" env:"RESET_LIMIT"`
}

// Store selects the save-slot backend.
type Store struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// Game holds generation and movement tuning.
type Game struct {
	Seed             int64   `yaml:"seed" env:"SEED"`
	Luck             string  `yaml:"luck" env:"LUCK"`
	SpawnProbability float64 `yaml:"spawn_probability" env:"SPAWN_PROBABILITY"`
	GridRadius       int     `yaml:"grid_radius" env:"GRID_RADIUS"`
	MintScale        float64 `yaml:"mint_scale" env:"MINT_SCALE"`
	TileDegrees      float64 `yaml:"tile_degrees" env:"TILE_DEGREES"`
	Scale            float64 `yaml:"scale" env:"SCALE"`
	ViewRadius       float64 `yaml:"view_radius" env:"VIEW_RADIUS"`
	StepCells        int     `yaml:"step_cells" env:"STEP_CELLS"`
	OriginLat        float64 `yaml:"origin_lat" env:"ORIGIN_LAT"`
	OriginLng        float64 `yaml:"origin_lng" env:"ORIGIN_LNG"`
	HibernateOnMove  bool    `yaml:"hibernate_on_move" env:"HIBERNATE_ON_MOVE"`
}

// Default returns the built-in configuration.
func Default() Config {
	gen := world.DefaultGenConfig()
	proj := world.DefaultProjection()
	return Config{
		LogLevel: "info",
		Server: Server{
			Addr:       ":8080",
			ResetLimit: 10,
		},
		Store: Store{
			Driver: persistence.DriverSQLite,
			Path:   "data/geocoin.db",
		},
		Game: Game{
			Seed:             0,
			Luck:             luck.KindHash,
			SpawnProbability: gen.SpawnProbability,
			GridRadius:       gen.Radius,
			MintScale:        gen.MintScale,
			TileDegrees:      proj.TileDegrees,
			Scale:            proj.Scale,
			ViewRadius:       world.DefaultViewRadius,
			StepCells:        1,
			OriginLat:        world.NullIsland.Lat,
			OriginLng:        world.NullIsland.Lng,
			HibernateOnMove:  true,
		},
	}
}

// Load builds the configuration. A missing file at path is not an error; an
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Driver {
	case persistence.DriverSQLite, persistence.DriverBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("store %s needs a path", c.Store.Driver)
		}
	case persistence.DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Server.ResetLimit < 0 {
		return fmt.Errorf("reset limit must not be negative")
	}
	switch c.Game.Luck {
	case luck.KindHash, luck.KindNoise:
	default:
		return fmt.Errorf("unknown luck source %q", c.Game.Luck)
	}
	if err := c.Session().Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// Session converts the game section to session settings.
func (c Config) Session() game.Config {
	g := c.Game
	return game.Config{
		Gen: world.GenConfig{
			SpawnProbability: g.SpawnProbability,
			Radius:           g.GridRadius,
			MintScale:        g.MintScale,
		},
		Projection: world.Projection{
			TileDegrees: g.TileDegrees,
			Scale:       g.Scale,
		},
		ViewRadius:      g.ViewRadius,
		StepCells:       g.StepCells,
		Origin:          world.LatLng{Lat: g.OriginLat, Lng: g.OriginLng},
		HibernateOnMove: g.HibernateOnMove,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

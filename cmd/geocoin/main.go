// Command geocoin runs the geocache coin game: an HTTP server around one game
// session, plus offline status and reset commands against the save store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/talgya/geocoin/internal/api"
	"github.com/talgya/geocoin/internal/config"
	"github.com/talgya/geocoin/internal/game"
	"github.com/talgya/geocoin/internal/luck"
	"github.com/talgya/geocoin/internal/metrics"
	"github.com/talgya/geocoin/internal/persistence"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, args); err != nil {
		slog.Error("geocoin failed", "error", err)
		return 1
	}
	return 0
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "geocoin",
		Usage: "geocache coin collecting game",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Value:   "geocoin.yaml",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides the config file)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
			},
			{
				Name:   "status",
				Usage:  "summarize the saved game",
				Action: statusAction,
			},
			{
				Name:  "reset",
				Usage: "erase the saved game and start over",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
				},
				Action: resetAction,
			},
		},
	}
}

// setup loads configuration and installs the default logger.
func setup(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return cfg, nil
}

func openStore(cfg config.Store) (persistence.Store, error) {
	if cfg.Driver != persistence.DriverMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := persistence.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	slog.Info("store opened", "driver", cfg.Driver, "path", cfg.Path)
	return store, nil
}

// newSession builds and starts a session over store.
func newSession(ctx context.Context, cfg config.Config, store persistence.Store, m *metrics.Metrics) (*game.Session, error) {
	src, err := luck.New(cfg.Game.Luck, cfg.Game.Seed)
	if err != nil {
		return nil, err
	}
	sess := game.NewSession(cfg.Session(), src, persistence.NewManager(store), m)
	if err := sess.Start(ctx); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	sess, err := newSession(ctx, cfg, store, m)
	if err != nil {
		return err
	}

	srv := &api.Server{
		Session:     sess,
		Metrics:     m,
		Addr:        cfg.Server.Addr,
		AdminKey:    cfg.Server.AdminKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		ResetLimit:  cfg.Server.ResetLimit,
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	// Final save on shutdown, under the server lock.
	slog.Info("shutting down, saving game")
	if err := srv.Close(context.Background()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}

func resetAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := newSession(ctx, cfg, store, nil)
	if err != nil {
		return err
	}

	confirmer := game.Prompt(os.Stdin, os.Stdout)
	if cmd.Bool("yes") {
		confirmer = game.Answer("yes")
	}
	done, err := sess.Reset(ctx, confirmer)
	if err != nil {
		return err
	}
	if done {
		fmt.Println("Game reset.")
	} else {
		fmt.Println("Reset cancelled.")
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/talgya/geocoin/internal/persistence"
)

func statusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	return printStatus(ctx, os.Stdout, store)
}

// printStatus summarizes both save slots without starting a session.
func printStatus(ctx context.Context, w io.Writer, store persistence.Store) error {
	mgr := persistence.NewManager(store)

	state, found, err := mgr.LoadState(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(w, "No saved game.")
	} else {
		coins := 0
		for _, c := range state.Caches {
			coins += len(c.Coins)
		}
		fmt.Fprintf(w, "Position:   %.6f, %.6f\n", state.Position.Lat, state.Position.Lng)
		fmt.Fprintf(w, "Inventory:  %s coins\n", humanize.Comma(int64(len(state.Inventory))))
		fmt.Fprintf(w, "Caches:     %s resident holding %s coins\n",
			humanize.Comma(int64(len(state.Caches))), humanize.Comma(int64(coins)))
	}

	hibernated, err := mgr.Hibernated(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Hibernated: %s caches\n", humanize.Comma(int64(len(hibernated))))

	db, ok := store.(*persistence.SQLite)
	if !ok {
		return nil
	}
	slots, err := db.Slots(ctx)
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	fmt.Fprintln(w, "Slots:")
	for _, s := range slots {
		fmt.Fprintf(w, "  %-24s %8s  written %s\n",
			s.Key, humanize.Bytes(uint64(s.Size)), humanize.Time(time.Unix(s.UpdatedAt, 0)))
	}
	return nil
}

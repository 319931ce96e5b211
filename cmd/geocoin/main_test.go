package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/geocoin/internal/config"
	"github.com/talgya/geocoin/internal/metrics"
	"github.com/talgya/geocoin/internal/persistence"
)

func TestStatusWithoutSave(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(context.Background(), &out, persistence.NewMemory()))
	assert.Contains(t, out.String(), "No saved game.")
	assert.Contains(t, out.String(), "Hibernated: 0 caches")
}

func TestStatusListsSQLiteSlots(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "geocoin.db")

	store, err := openStore(cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = newSession(ctx, cfg, store, metrics.New())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printStatus(ctx, &out, store))
	assert.Contains(t, out.String(), "Position:   0.000000, 0.000000")
	assert.Contains(t, out.String(), persistence.StateKey)
}

func TestResetCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GEOCOIN_STORE_DRIVER", "bolt")
	t.Setenv("GEOCOIN_STORE_PATH", filepath.Join(dir, "slots.bolt"))

	args := []string{"geocoin", "--config", filepath.Join(dir, "none.yaml"), "--log-level", "error", "reset", "--yes"}
	require.NoError(t, newApp().Run(context.Background(), args))
}

func TestBadLogLevel(t *testing.T) {
	t.Setenv("GEOCOIN_STORE_DRIVER", "memory")
	args := []string{"geocoin", "--config", "", "--log-level", "chatty", "status"}
	assert.Error(t, newApp().Run(context.Background(), args))
}

package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(filepath.Join(dir, "geocoin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	bolt, err := OpenBolt(filepath.Join(dir, "geocoin.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
		"bolt":   bolt,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "slot", []byte(`{"a":1}`)))
			value, ok, err := store.Get(ctx, "slot")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"a":1}`, string(value))

			require.NoError(t, store.Set(ctx, "slot", []byte(`[]`)))
			value, ok, err = store.Get(ctx, "slot")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "[]", string(value))

			require.NoError(t, store.Remove(ctx, "slot"))
			_, ok, err = store.Get(ctx, "slot")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, store.Remove(ctx, "slot"), "removing an absent key")
		})
	}
}

func TestStoreValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "geocoin.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, StateKey, []byte("state")))
	require.NoError(t, db.Set(ctx, HibernationKey, []byte("hibernated")))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	value, ok, err := db.Get(ctx, StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "state", string(value))

	slots, err := db.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	sizes := map[string]int64{}
	for _, s := range slots {
		sizes[s.Key] = s.Size
	}
	assert.Equal(t, int64(5), sizes[StateKey])
	assert.Equal(t, int64(10), sizes[HibernationKey])
}

func TestBoltRequiresPath(t *testing.T) {
	_, err := OpenBolt("  ")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(DriverBolt, filepath.Join(dir, "x.bolt"))
	require.NoError(t, err)
	assert.IsType(t, &Bolt{}, s)
	require.NoError(t, s.Close())

	s, err = Open(DriverSQLite, filepath.Join(dir, "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "")
	assert.Error(t, err)
}

func TestStoresHonourCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range openStores(t) {
		if name == "sqlite" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Set(ctx, "k", []byte("v")))
			_, _, err := store.Get(ctx, "k")
			assert.Error(t, err)
		})
	}
}

package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/geocoin/internal/player"
	"github.com/talgya/geocoin/internal/world"
)

// Slot names in the store.
const (
	StateKey       = "savedGameState"
	HibernationKey = "cacheData"

	CorruptSuffix = ".corrupt"
)

// Manager saves and restores game state through two slots: the full-state
// snapshot and the hibernation slot holding caches evicted from the registry.
// The slots are written independently; there is no transaction spanning both.
type Manager struct {
	store Store
}

// NewManager creates a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

func snapshotCaches(caches []*world.Cache) []CacheEntry {
	entries := make([]CacheEntry, len(caches))
	for i, c := range caches {
		entries[i] = CacheEntry{Coord: c.Coord, Coins: c.Coins(), Populated: c.Populated()}
	}
	return entries
}

func applyEntries(reg *world.Registry, entries []CacheEntry) {
	for _, e := range entries {
		c := reg.GetOrCreate(e.Coord)
		if e.Populated {
			c.Restore(e.Coins)
		}
	}
}

// SaveState overwrites the full-state slot with the player position, the
// inventory, and every resident cache.
func (m *Manager) SaveState(ctx context.Context, pos world.LatLng, inv *player.Inventory, reg *world.Registry) error {
	blob, err := encodeState(State{
		Position:  pos,
		Inventory: inv.Coins(),
		Caches:    snapshotCaches(reg.All()),
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := m.store.Set(ctx, StateKey, blob); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	slog.Debug("game state saved", "caches", reg.Len(), "inventory", inv.Len(), "bytes", len(blob))
	return nil
}

// LoadState decodes the full-state slot without applying it.
// found is false when nothing has been saved.
func (m *Manager) LoadState(ctx context.Context) (state State, found bool, err error) {
	blob, ok, err := m.store.Get(ctx, StateKey)
	if err != nil {
		return State{}, false, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return State{}, false, nil
	}
	state, err = decodeState(blob)
	if err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// RestoreState applies the full-state slot: the inventory is replaced and
// every saved cache is restored into reg, bypassing minting. The saved
// position is returned. Corrupt state is rejected before anything changes.
func (m *Manager) RestoreState(ctx context.Context, inv *player.Inventory, reg *world.Registry) (world.LatLng, bool, error) {
	state, found, err := m.LoadState(ctx)
	if err != nil || !found {
		return world.LatLng{}, false, err
	}

	inv.Replace(state.Inventory)
	applyEntries(reg, state.Caches)

	slog.Info("game state restored",
		"caches", len(state.Caches),
		"inventory", len(state.Inventory),
		"lat", state.Position.Lat,
		"lng", state.Position.Lng,
	)
	return state.Position, true, nil
}

// Hibernated returns the caches currently in the hibernation slot.
func (m *Manager) Hibernated(ctx context.Context) ([]CacheEntry, error) {
	blob, ok, err := m.store.Get(ctx, HibernationKey)
	if err != nil {
		return nil, fmt.Errorf("load hibernation slot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return decodeHibernation(blob)
}

// ToMemento moves every cache outside the viewport from reg into the
// hibernation slot, then re-saves the full state so it reflects the smaller
// registry. Entries already hibernated are kept; a populated entry is never
// replaced by an unpopulated one. Returns the number of caches evicted.
func (m *Manager) ToMemento(ctx context.Context, reg *world.Registry, vp world.Viewport, pos world.LatLng, inv *player.Inventory) (int, error) {
	_, out := vp.Partition(reg.All(), pos)

	if len(out) > 0 {
		existing, err := m.Hibernated(ctx)
		if err != nil {
			return 0, err
		}

		merged := make([]CacheEntry, 0, len(existing)+len(out))
		index := make(map[world.GridCoord]int, len(existing)+len(out))
		for _, e := range existing {
			index[e.Coord] = len(merged)
			merged = append(merged, e)
		}
		for _, e := range snapshotCaches(out) {
			if i, ok := index[e.Coord]; ok {
				if merged[i].Populated && !e.Populated {
					continue
				}
				merged[i] = e
				continue
			}
			index[e.Coord] = len(merged)
			merged = append(merged, e)
		}

		blob, err := encodeHibernation(merged)
		if err != nil {
			return 0, fmt.Errorf("encode hibernation slot: %w", err)
		}
		if err := m.store.Set(ctx, HibernationKey, blob); err != nil {
			return 0, fmt.Errorf("save hibernation slot: %w", err)
		}

		for _, c := range out {
			reg.Remove(c.Coord)
		}
		slog.Debug("caches hibernated", "evicted", len(out), "hibernated", len(merged), "resident", reg.Len())
	}

	if err := m.SaveState(ctx, pos, inv, reg); err != nil {
		return len(out), err
	}
	return len(out), nil
}

// FromMemento brings every hibernated cache back into reg and clears the
// hibernation slot. Without a hibernation slot it does nothing.
// Returns the number of caches rehydrated.
func (m *Manager) FromMemento(ctx context.Context, reg *world.Registry) (int, error) {
	entries, err := m.Hibernated(ctx)
	if err != nil {
		return 0, err
	}
	if entries == nil {
		return 0, nil
	}

	applyEntries(reg, entries)

	if err := m.store.Remove(ctx, HibernationKey); err != nil {
		return len(entries), fmt.Errorf("clear hibernation slot: %w", err)
	}
	slog.Debug("caches rehydrated", "count", len(entries), "resident", reg.Len())
	return len(entries), nil
}

// Quarantine copies a slot to "<key>.corrupt" and removes the original, so a
// rejected save is kept for inspection instead of being overwritten.
func (m *Manager) Quarantine(ctx context.Context, key string) error {
	blob, ok, err := m.store.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := m.store.Set(ctx, key+CorruptSuffix, blob); err != nil {
		return fmt.Errorf("quarantine %s: %w", key, err)
	}
	return m.store.Remove(ctx, key)
}

// Clear removes both slots.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Remove(ctx, StateKey); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	if err := m.store.Remove(ctx, HibernationKey); err != nil {
		return fmt.Errorf("clear hibernation slot: %w", err)
	}
	return nil
}

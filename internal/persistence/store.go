// Package persistence stores game state in named slots of a key-value store
// and implements save/restore and cache hibernation on top of them.
package persistence

import (
	"context"
	"fmt"
	"sync"
)

// Store is a process-wide key-value store addressed by slot name.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Store drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// Open opens the store named by driver at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverBolt:
		db, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// Memory is an in-process Store, used in tests and ephemeral games.
type Memory struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

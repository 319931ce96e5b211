package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite stores slots in a single-table SQLite database.
type SQLite struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Get retrieves a slot value.
func (db *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM slots WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a slot value, replacing any previous one.
func (db *SQLite) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO slots (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}
	return nil
}

// Remove deletes a slot.
func (db *SQLite) Remove(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove slot %q: %w", key, err)
	}
	return nil
}

// SlotInfo describes a stored slot without its value.
type SlotInfo struct {
	Key       string `db:"key"`
	Size      int64  `db:"size"`
	UpdatedAt int64  `db:"updated_at"`
}

// Slots lists stored slots, most recently written first.
func (db *SQLite) Slots(ctx context.Context) ([]SlotInfo, error) {
	var slots []SlotInfo
	err := db.conn.SelectContext(ctx, &slots,
		"SELECT key, length(value) AS size, updated_at FROM slots ORDER BY updated_at DESC, key",
	)
	return slots, err
}

package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSnapshotPath is where the CLI keeps its rehearsal snapshot.
func DefaultSnapshotPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "yoointerview", "rehearsal.db")
	}
	return "rehearsal.db"
}

// OpenSnapshotDB opens (creating if needed) the SQLite file backing the
// client-side snapshot store.
func OpenSnapshotDB(path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultSnapshotPath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

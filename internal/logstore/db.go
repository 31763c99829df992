// Package logstore provides access to the embedded SQLite message store
// written by the WhatsApp bridge. It owns the schema reconciliation that
// keeps the bridge's messages table compatible with the pipeline's read
// contract, the discovery of unprocessed messages, and the processed marker.
package logstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Open initializes and returns a connection pool for the SQLite log store.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*sqlx.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log store directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to log store: %w", err)
	}

	// SQLite doesn't support concurrent writes, so max open conns = 1
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("Log store connected", "path", dbPath)
	return db, nil
}

// CloseDB closes the log store connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing log store connection", "error", err)
	} else {
		slog.Info("Log store connection closed.")
	}
}

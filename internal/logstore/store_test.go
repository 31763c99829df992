// Package logstore_test tests schema reconciliation and the processed
// marker against an on-disk SQLite store.
package logstore_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"tradewatch/internal/logstore"
)

func newTestStore(t *testing.T) (*sqlx.DB, logstore.Store) {
	t.Helper()

	db, err := logstore.Open(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("failed to open log store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return db, logstore.NewStore(db, log)
}

func tableColumns(t *testing.T, db *sqlx.DB) map[string]bool {
	t.Helper()

	rows, err := db.Query(`PRAGMA table_info(messages)`)
	if err != nil {
		t.Fatalf("failed to read table info: %v", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("failed to scan table info: %v", err)
		}
		cols[name] = true
	}
	return cols
}

var requiredColumns = []string{
	"id", "chat_jid", "sender", "content", "timestamp", "is_from_me", "media_type", "processed",
}

func TestEnsureSchemaCreatesTable(t *testing.T) {
	t.Parallel()

	db, store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed on empty store: %v", err)
	}

	cols := tableColumns(t, db)
	for _, col := range requiredColumns {
		if !cols[col] {
			t.Errorf("missing required column %q after create", col)
		}
	}

	messages, err := store.Unprocessed(ctx)
	if err != nil {
		t.Fatalf("Unprocessed failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages in fresh store, got %d", len(messages))
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	db, store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema call %d failed: %v", i+1, err)
		}
	}

	cols := tableColumns(t, db)
	if len(cols) != len(requiredColumns) {
		t.Errorf("expected %d columns, got %d: %v", len(requiredColumns), len(cols), cols)
	}
}

func TestEnsureSchemaHealsMissingColumnsLosslessly(t *testing.T) {
	t.Parallel()

	db, store := newTestStore(t)
	ctx := context.Background()

	// Simulate a table written by an older bridge build, missing the
	// media_type and processed columns.
	mustExec(t, db, `
        CREATE TABLE messages (
            id TEXT, chat_jid TEXT, sender TEXT NOT NULL, content TEXT NOT NULL,
            timestamp TEXT, is_from_me BOOLEAN,
            PRIMARY KEY (id, chat_jid)
        )`)
	mustExec(t, db, `
        INSERT INTO messages (id, chat_jid, sender, content, timestamp, is_from_me)
        VALUES ('msg-1', 'chat-1', 'alice', 'WTS iPhone 13', '2025-06-01 10:00:00', 0)`)

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	cols := tableColumns(t, db)
	for _, col := range requiredColumns {
		if !cols[col] {
			t.Errorf("missing required column %q after healing", col)
		}
	}

	messages, err := store.Unprocessed(ctx)
	if err != nil {
		t.Fatalf("Unprocessed failed after healing: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected the pre-existing row to survive healing, got %d rows", len(messages))
	}
	msg := messages[0]
	if msg.ID != "msg-1" || msg.Sender != "alice" || msg.Content != "WTS iPhone 13" || msg.Timestamp != "2025-06-01 10:00:00" {
		t.Errorf("pre-existing row values not preserved: %+v", msg)
	}
}

func TestUnprocessedOrderAndMarking(t *testing.T) {
	t.Parallel()

	db, store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	mustExec(t, db, `
        INSERT INTO messages (id, chat_jid, sender, content, timestamp, is_from_me, media_type, processed)
        VALUES
            ('msg-2', 'chat-1', 'bob', 'second', '2025-06-01 11:00:00', 0, 'text', 0),
            ('msg-1', 'chat-1', 'alice', 'first', '2025-06-01 10:00:00', 0, 'text', 0),
            ('msg-3', 'chat-1', 'carol', 'done already', '2025-06-01 09:00:00', 0, 'text', 1)`)

	messages, err := store.Unprocessed(ctx)
	if err != nil {
		t.Fatalf("Unprocessed failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 unprocessed messages, got %d", len(messages))
	}
	if messages[0].ID != "msg-1" || messages[1].ID != "msg-2" {
		t.Errorf("messages not in ascending timestamp order: %q, %q", messages[0].ID, messages[1].ID)
	}
	if messages[0].ReplyJID != "chat-1" {
		t.Errorf("reply JID not populated from chat_jid: %q", messages[0].ReplyJID)
	}

	if err := store.MarkProcessed(ctx, "msg-1", "chat-1"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	// Once marked, a message is never discovered again.
	for i := 0; i < 2; i++ {
		messages, err = store.Unprocessed(ctx)
		if err != nil {
			t.Fatalf("Unprocessed failed after marking: %v", err)
		}
		if len(messages) != 1 || messages[0].ID != "msg-2" {
			t.Fatalf("expected only msg-2 to remain, got %+v", messages)
		}
	}
}

func TestVacuum(t *testing.T) {
	t.Parallel()

	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := store.Vacuum(ctx); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func mustExec(t *testing.T, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec failed: %v\nquery: %s", err, query)
	}
}

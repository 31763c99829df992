package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// column pairs a column name with its SQLite type definition. Order matters
// for deterministic CREATE TABLE statements.
type column struct {
	Name string
	Type string
}

// targetColumns is the column set the pipeline requires on the messages
// table, aligned with the bridge's writer-side schema plus the processed
// marker this pipeline adds.
var targetColumns = []column{
	{"id", "TEXT"},
	{"chat_jid", "TEXT"},
	{"sender", "TEXT NOT NULL"},
	{"content", "TEXT NOT NULL"},
	{"timestamp", "TEXT"},
	{"is_from_me", "BOOLEAN"},
	{"media_type", "TEXT"},
	{"processed", "BOOLEAN DEFAULT 0"},
}

// tableColumn mirrors one row of PRAGMA table_info output.
type tableColumn struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

// EnsureSchema guarantees the messages table contains every target column,
// creating the table when absent, adding columns in place where SQLite
// allows it, and rebuilding the table via a backup-rename-restore sequence
// when it does not. The operation is idempotent; a matching schema is a
// no-op. Pre-existing rows' values for columns shared between the old and
// new schemas are preserved across a rebuild.
func (s *sqlxStore) EnsureSchema(ctx context.Context) error {
	var name string
	err := s.db.GetContext(ctx, &name,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'messages'`)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, createTableSQL("messages")); err != nil {
			return fmt.Errorf("failed to create messages table: %w", err)
		}
		s.logger.InfoContext(ctx, "Created messages table with all required columns")
		return nil

	case err != nil:
		return fmt.Errorf("failed to inspect log store schema: %w", err)
	}

	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	added := 0
	for _, col := range targetColumns {
		if _, ok := existing[col.Name]; ok {
			continue
		}
		// ALTER TABLE ADD COLUMN rejects constraints like NOT NULL on
		// populated tables, so only the bare type is added here; anything
		// SQLite still refuses is healed by the rebuild below.
		addType := strings.Fields(col.Type)[0]
		stmt := fmt.Sprintf(`ALTER TABLE messages ADD COLUMN %s %s`, col.Name, addType)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.WarnContext(ctx, "Could not add column in place", "column", col.Name, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "Added missing column", "column", col.Name)
		added++
	}

	final, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	var missing []string
	for _, col := range targetColumns {
		if _, ok := final[col.Name]; !ok {
			missing = append(missing, col.Name)
		}
	}

	if len(missing) > 0 {
		s.logger.WarnContext(ctx, "Columns could not be added in place, rebuilding table", "missing", strings.Join(missing, ","))
		if err := s.rebuild(ctx, existing); err != nil {
			return err
		}
	}

	if added > 0 || len(missing) > 0 {
		// Rows that predate the processed column must not be invisible to
		// discovery, which filters on processed = 0.
		if _, err := s.db.ExecContext(ctx,
			`UPDATE messages SET processed = 0 WHERE processed IS NULL`); err != nil {
			return fmt.Errorf("failed to backfill processed marker: %w", err)
		}
	}

	return nil
}

// rebuild renames the live table aside, recreates it with the full target
// schema, copies forward the intersection of old and target columns, and
// drops the backup.
func (s *sqlxStore) rebuild(ctx context.Context, existing map[string]string) error {
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE messages RENAME TO messages_backup`); err != nil {
		return fmt.Errorf("failed to rename messages table for rebuild: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createTableSQL("messages")); err != nil {
		return fmt.Errorf("failed to recreate messages table: %w", err)
	}

	var common []string
	for _, col := range targetColumns {
		if _, ok := existing[col.Name]; ok {
			common = append(common, col.Name)
		}
	}

	if len(common) > 0 {
		cols := strings.Join(common, ", ")
		stmt := fmt.Sprintf(`INSERT INTO messages (%s) SELECT %s FROM messages_backup`, cols, cols)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to copy rows into rebuilt messages table: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE messages_backup`); err != nil {
		return fmt.Errorf("failed to drop messages backup table: %w", err)
	}

	s.logger.InfoContext(ctx, "Rebuilt messages table with all required columns", "copied_columns", len(common))
	return nil
}

// tableColumns returns the current column set of the messages table as a
// name -> type map.
func (s *sqlxStore) tableColumns(ctx context.Context) (map[string]string, error) {
	var cols []tableColumn
	if err := s.db.SelectContext(ctx, &cols, `PRAGMA table_info(messages)`); err != nil {
		return nil, fmt.Errorf("failed to read messages table info: %w", err)
	}

	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c.Name] = c.Type
	}
	return out, nil
}

func createTableSQL(name string) string {
	defs := make([]string, 0, len(targetColumns))
	for _, col := range targetColumns {
		defs = append(defs, col.Name+" "+col.Type)
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s, PRIMARY KEY (id, chat_jid))`, name, strings.Join(defs, ", "))
}

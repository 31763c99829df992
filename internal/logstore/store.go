package logstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store defines the log store operations the pipeline depends on.
type Store interface {
	// EnsureSchema reconciles the messages table with the pipeline's
	// required column set. It must run before every discovery cycle.
	EnsureSchema(ctx context.Context) error

	// Unprocessed returns all messages with processed = 0 in ascending
	// timestamp order.
	Unprocessed(ctx context.Context) ([]Message, error)

	// MarkProcessed sets the processed marker for one message. Once marked,
	// the message is never returned by Unprocessed again.
	MarkProcessed(ctx context.Context, id, chatJID string) error

	// Vacuum reclaims unused space in the store file.
	Vacuum(ctx context.Context) error
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given log store connection.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "logstore"),
	}
}

// Unprocessed returns all messages not yet processed, oldest first. The
// chat JID doubles as the reply-target identifier.
func (s *sqlxStore) Unprocessed(ctx context.Context) ([]Message, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []Message
	query := `
        SELECT id, sender, content, chat_jid AS jid,
               COALESCE(timestamp, '') AS timestamp,
               chat_jid,
               COALESCE(is_from_me, 0) AS is_from_me
        FROM messages
        WHERE processed = 0
        ORDER BY timestamp ASC;
    `

	err := s.db.SelectContext(ctx, &messages, query)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching unprocessed messages", "error", err)
		return nil, fmt.Errorf("failed to fetch unprocessed messages: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched unprocessed messages", "count", len(messages))
	return messages, nil
}

// MarkProcessed flips the processed marker for the message identified by
// its (id, chat_jid) primary key and commits immediately.
func (s *sqlxStore) MarkProcessed(ctx context.Context, id, chatJID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET processed = 1 WHERE id = ? AND chat_jid = ?`, id, chatJID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking message processed", "message_id", id, "chat_jid", chatJID, "error", err)
		return fmt.Errorf("failed to mark message %s processed: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when marking message processed",
			"message_id", id, "chat_jid", chatJID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Marked message processed", "message_id", id, "chat_jid", chatJID)
	return nil
}

// Vacuum executes a VACUUM on the log store. SQLite requires VACUUM to run
// outside a transaction.
func (s *sqlxStore) Vacuum(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting log store maintenance (VACUUM)...")
	if _, err := s.db.ExecContext(ctx, `VACUUM;`); err != nil {
		s.logger.ErrorContext(ctx, "Log store maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Log store maintenance (VACUUM) completed")
	return nil
}

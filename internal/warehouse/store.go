package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"tradewatch/internal/extract"
)

// TimestampLayout is the warehouse's canonical datetime representation.
const TimestampLayout = "2006-01-02 15:04:05"

// MessageRecord is one normalized message row appended to the warehouse.
type MessageRecord struct {
	Timestamp   string // raw log-store timestamp, normalized on write
	ChatJID     string
	Sender      string
	Content     string
	IsFromMe    bool
	MediaType   string
	Processed   bool
	BotResponse string
}

// Store defines the warehouse write operations. Neither operation
// deduplicates: idempotency against redelivery is provided entirely by the
// poller's processed marker, and the writer trusts its caller to invoke it
// at most once per message.
type Store interface {
	// StoreMessage appends one normalized message row.
	StoreMessage(ctx context.Context, rec MessageRecord) error

	// StoreTransactions appends one row per transaction as a single
	// all-or-nothing database transaction.
	StoreTransactions(ctx context.Context, timestamp, sender string, txns []extract.Transaction) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a warehouse Store backed by the given connection.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "warehouse"),
		now:    time.Now,
	}
}

// NormalizeTimestamp parses a log-store timestamp in the warehouse's
// canonical layout, substituting now on parse failure.
func NormalizeTimestamp(raw string, now func() time.Time) time.Time {
	ts, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return now()
	}
	return ts
}

// StoreMessage appends one message row, normalizing the timestamp.
func (s *sqlxStore) StoreMessage(ctx context.Context, rec MessageRecord) error {
	ts := NormalizeTimestamp(rec.Timestamp, s.now)

	query := `
        INSERT INTO messages (timestamp, chat_jid, sender, content, is_from_me, media_type, processed, bot_response)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		ts.Format(TimestampLayout), rec.ChatJID, rec.Sender, rec.Content,
		rec.IsFromMe, rec.MediaType, rec.Processed, rec.BotResponse)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error storing message", "sender", rec.Sender, "chat_jid", rec.ChatJID, "error", err)
		return fmt.Errorf("failed to store message from %s: %w", rec.Sender, err)
	}

	s.logger.DebugContext(ctx, "Message stored", "sender", rec.Sender, "timestamp", ts.Format(TimestampLayout))
	return nil
}

// StoreTransactions appends one warehouse row per transaction, flattening
// the price and region composites into individual columns. The batch
// executes inside a single database transaction: either every row is
// committed or none is, leaving nothing partial to extend on a retry.
func (s *sqlxStore) StoreTransactions(ctx context.Context, timestamp, sender string, txns []extract.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	ts := NormalizeTimestamp(timestamp, s.now).Format(TimestampLayout)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction batch", "sender", sender, "error", err)
		return fmt.Errorf("failed to begin transaction batch: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction batch", "error", rollbackErr)
				}
			}
		}
	}()

	query := `
        INSERT INTO transactions (
            timestamp, sender, action, brand, product, model, storage, color,
            quantity, price_amount, price_currency, price_per_unit,
            region_market, region_warranty, ` + "`condition`" + `, warranty,
            additional_details
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	for i, txn := range txns {
		var priceAmount *float64
		var priceCurrency *string
		var pricePerUnit *bool
		if txn.Price != nil {
			priceAmount = txn.Price.Amount
			priceCurrency = txn.Price.Currency
			pricePerUnit = txn.Price.PerUnit
		}

		var regionMarket, regionWarranty *string
		if txn.Region != nil {
			regionMarket = txn.Region.Market
			regionWarranty = txn.Region.Warranty
		}

		if _, err := tx.ExecContext(ctx, query,
			ts, sender, txn.Action, txn.Brand, txn.Product, txn.Model,
			txn.Storage, txn.Color, txn.Quantity,
			priceAmount, priceCurrency, pricePerUnit,
			regionMarket, regionWarranty,
			txn.Condition, txn.Warranty, txn.AdditionalDetails); err != nil {
			s.logger.ErrorContext(ctx, "Error storing transaction, aborting batch",
				"sender", sender, "index", i, "error", err)
			return fmt.Errorf("failed to store transaction %d of %d: %w", i+1, len(txns), err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction batch", "sender", sender, "error", err)
		return fmt.Errorf("failed to commit transaction batch: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Transactions stored", "sender", sender, "count", len(txns))
	return nil
}

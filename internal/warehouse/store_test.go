package warehouse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"tradewatch/internal/extract"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*sqlxStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	store := NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil))).(*sqlxStore)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }

func TestNormalizeTimestamp(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return fixedNow }

	got := NormalizeTimestamp("2025-05-30 09:15:00", now)
	want := time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("valid timestamp: got %v, want %v", got, want)
	}

	for _, raw := range []string{"", "not a timestamp", "2025-05-30T09:15:00Z"} {
		if got := NormalizeTimestamp(raw, now); !got.Equal(fixedNow) {
			t.Errorf("NormalizeTimestamp(%q) = %v, want current time fallback", raw, got)
		}
	}
}

func TestStoreMessage(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("2025-05-30 09:15:00", "chat-1", "alice", "WTS iPhone 13",
			false, "text", true, "Detected transaction: SELL").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := MessageRecord{
		Timestamp:   "2025-05-30 09:15:00",
		ChatJID:     "chat-1",
		Sender:      "alice",
		Content:     "WTS iPhone 13",
		MediaType:   "text",
		Processed:   true,
		BotResponse: "Detected transaction: SELL",
	}
	if err := store.StoreMessage(context.Background(), rec); err != nil {
		t.Fatalf("StoreMessage failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreMessageNormalizesBadTimestamp(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(fixedNow.Format(TimestampLayout), "chat-1", "alice", "hello",
			false, "text", true, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := MessageRecord{
		Timestamp: "garbage",
		ChatJID:   "chat-1",
		Sender:    "alice",
		Content:   "hello",
		MediaType: "text",
		Processed: true,
	}
	if err := store.StoreMessage(context.Background(), rec); err != nil {
		t.Fatalf("StoreMessage failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreMessageSurfacesError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WillReturnError(errors.New("connection lost"))

	err := store.StoreMessage(context.Background(), MessageRecord{Sender: "alice"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestStoreTransactions(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	txns := []extract.Transaction{
		{
			Action:   "sell",
			Brand:    strPtr("Samsung"),
			Product:  "Z Flip 5",
			Storage:  strPtr("512GB"),
			Color:    strPtr("Beige"),
			Quantity: 30,
			Price:    &extract.Price{Amount: f64Ptr(400), Currency: strPtr("USD"), PerUnit: boolPtr(true)},
			Region:   &extract.Region{Market: strPtr("EU"), Warranty: strPtr("Global")},
		},
		{
			Action:   "sell",
			Brand:    strPtr("Samsung"),
			Product:  "Z Flip 5",
			Storage:  strPtr("512GB"),
			Color:    strPtr("Graphite"),
			Quantity: 30,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("2025-05-30 09:15:00", "alice", "sell", "Samsung", "Z Flip 5", nil,
			"512GB", "Beige", 30, float64(400), "USD", true, "EU", "Global", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("2025-05-30 09:15:00", "alice", "sell", "Samsung", "Z Flip 5", nil,
			"512GB", "Graphite", 30, nil, nil, nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := store.StoreTransactions(context.Background(), "2025-05-30 09:15:00", "alice", txns); err != nil {
		t.Fatalf("StoreTransactions failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreTransactionsEmptyListIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	if err := store.StoreTransactions(context.Background(), "2025-05-30 09:15:00", "alice", nil); err != nil {
		t.Fatalf("StoreTransactions failed on empty list: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no database activity: %v", err)
	}
}

func TestStoreTransactionsRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	txns := []extract.Transaction{
		{Action: "sell", Product: "iPhone 13", Quantity: 1},
		{Action: "sell", Product: "iPhone 14", Quantity: 1},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := store.StoreTransactions(context.Background(), "2025-05-30 09:15:00", "alice", txns)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

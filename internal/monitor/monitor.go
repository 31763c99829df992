// Package monitor implements the polling control loop: it discovers
// unprocessed messages, drives each through extraction and warehouse
// persistence, triggers the reply gateway, and marks messages processed
// with per-message fault isolation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradewatch/internal/config"
	"tradewatch/internal/extract"
	"tradewatch/internal/gateway"
	"tradewatch/internal/logstore"
	"tradewatch/internal/warehouse"
)

// ErrSchemaReconcile marks a failed schema reconciliation. It is fatal:
// the pipeline cannot safely continue without a correct log store schema.
var ErrSchemaReconcile = errors.New("schema reconciliation failed")

// Monitor is the single-worker polling orchestrator. Messages within a
// cycle are processed strictly sequentially; a message is marked processed
// only after its warehouse writes committed, and a failure in one
// message's pipeline never blocks another's.
type Monitor struct {
	log       *slog.Logger
	store     logstore.Store
	wh        warehouse.Store
	extractor extract.Extractor
	gateway   gateway.Client
	cfg       config.MonitorConfig

	lastPull string
	now      func() time.Time
}

// New creates a Monitor with all required collaborators.
func New(
	log *slog.Logger,
	store logstore.Store,
	wh warehouse.Store,
	extractor extract.Extractor,
	gw gateway.Client,
	cfg config.MonitorConfig,
) *Monitor {
	return &Monitor{
		log:       log.With("component", "monitor"),
		store:     store,
		wh:        wh,
		extractor: extractor,
		gateway:   gw,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes polling cycles until ctx is cancelled. Cycle-level
// infrastructure failures back off and retry indefinitely; a schema
// reconciliation failure terminates the loop with an error.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Monitor started", "source", m.cfg.Source, "poll_interval", m.cfg.PollInterval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		if m.cfg.Source == "gateway" {
			err = m.pullCycle(ctx)
		} else {
			err = m.storeCycle(ctx)
		}

		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, ErrSchemaReconcile):
			m.log.Error("Schema reconciliation failed, terminating", "error", err)
			return err
		case err != nil:
			m.log.Error("Polling cycle failed, backing off", "error", err, "backoff", m.cfg.ErrorBackoff)
			if err := sleep(ctx, m.cfg.ErrorBackoff); err != nil {
				return err
			}
		}

		if err := sleep(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// storeCycle runs one reconcile-discover-drain pass over the log store.
func (m *Monitor) storeCycle(ctx context.Context) error {
	if err := m.store.EnsureSchema(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrSchemaReconcile, err)
	}

	messages, err := m.store.Unprocessed(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover unprocessed messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	m.log.Info("Found new messages", "count", len(messages))

	for i := range messages {
		msg := messages[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.processMessage(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Left unprocessed on purpose: the message is retried next cycle.
			m.log.Error("Error processing message", "message_id", msg.ID, "sender", msg.Sender, "error", err)
			continue
		}

		if err := m.store.MarkProcessed(ctx, msg.ID, msg.ChatJID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Error("Failed to mark message processed, it will be reprocessed", "message_id", msg.ID, "error", err)
		}
	}

	return nil
}

// processMessage runs one message through extraction, warehouse
// persistence, and reply delivery. A returned error leaves the message
// unprocessed; a gateway delivery failure is logged but does not.
func (m *Monitor) processMessage(ctx context.Context, msg logstore.Message) error {
	timestamp := msg.Timestamp
	if timestamp == "" {
		timestamp = m.now().Format(warehouse.TimestampLayout)
	}

	m.log.Info("Processing message", "sender", msg.Sender, "content_preview", preview(msg.Content, 100), "is_from_me", msg.IsFromMe)

	reply, txns, err := m.extractor.Extract(ctx, msg.Content)
	if err != nil {
		return err
	}

	rec := warehouse.MessageRecord{
		Timestamp:   timestamp,
		ChatJID:     msg.ChatJID,
		Sender:      msg.Sender,
		Content:     msg.Content,
		IsFromMe:    msg.IsFromMe,
		MediaType:   "text",
		Processed:   true,
		BotResponse: reply,
	}
	if err := m.wh.StoreMessage(ctx, rec); err != nil {
		return err
	}

	if len(txns) > 0 {
		if err := m.wh.StoreTransactions(ctx, timestamp, msg.Sender, txns); err != nil {
			return err
		}
	}

	if msg.ReplyJID != "" {
		resp, err := m.gateway.SendMessage(ctx, msg.ReplyJID, reply)
		switch {
		case err != nil:
			m.log.Warn("Failed to deliver reply", "jid", msg.ReplyJID, "error", err)
		case !resp.Success:
			m.log.Warn("Gateway rejected reply", "jid", msg.ReplyJID, "status_message", resp.Message)
		}
	}

	return nil
}

// pullCycle fetches a batch from the gateway's list_messages tool and
// stores each complete message. Replies are not delivered in pull mode;
// the batch high-water mark advances only after a batch is handled.
func (m *Monitor) pullCycle(ctx context.Context) error {
	messages, err := m.gateway.ListMessages(ctx, m.lastPull, m.cfg.PullLimit)
	if err != nil {
		return fmt.Errorf("failed to pull messages from gateway: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	m.log.Info("Found new messages", "count", len(messages))

	for _, in := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if in.Timestamp == "" || in.Sender == "" || in.Content == "" || in.ChatJID == "" {
			m.log.Warn("Skipping incomplete message", "sender", in.Sender, "chat_jid", in.ChatJID)
			continue
		}

		msg := logstore.Message{
			Sender:    in.Sender,
			Content:   in.Content,
			Timestamp: in.Timestamp,
			ChatJID:   in.ChatJID,
		}
		if err := m.processMessage(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Error("Error processing pulled message", "sender", in.Sender, "error", err)
		}
	}

	m.lastPull = m.now().Format(time.RFC3339)
	return nil
}

func preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

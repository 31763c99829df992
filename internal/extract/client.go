// Package extract wraps the Gemini completion service behind the
// extraction engine: it turns free-text chat content into typed trading
// transactions plus a reply, falling back to a conversational completion
// when no trading intent is detected.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"

	"tradewatch/internal/config"
)

// Extractor defines the extraction operation used by the poller.
type Extractor interface {
	// Extract analyzes content and returns the reply to deliver plus zero
	// or more extracted transactions. Completion-service failures degrade
	// to an apology reply rather than an error; the returned error is
	// non-nil only when ctx is cancelled.
	Extract(ctx context.Context, content string) (string, []Transaction, error)
}

type geminiExtractor struct {
	genaiClient *genai.Client
	log         *slog.Logger
	validate    *validator.Validate

	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

// NewExtractor creates a new Gemini-backed Extractor with the provided
// configuration.
func NewExtractor(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	logger := log.With("component", "extractor")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)

	return &geminiExtractor{
		genaiClient: gi,
		log:         logger,
		validate:    validator.New(),
		contentConfig: &genai.GenerateContentConfig{
			Temperature: &temperature,
		},
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (e *geminiExtractor) Extract(ctx context.Context, content string) (string, []Transaction, error) {
	raw, err := e.complete(ctx, ExtractionPrompt, content)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		e.log.ErrorContext(ctx, "Extraction completion failed, using apology reply", "error", err)
		return ApologyReply, nil, nil
	}

	txns := e.parseTransactions(ctx, raw)
	if len(txns) > 0 {
		return BuildReply(txns), txns, nil
	}

	reply, err := e.complete(ctx, ConversationalPrompt, content)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		e.log.ErrorContext(ctx, "Conversational completion failed, using apology reply", "error", err)
		return ApologyReply, nil, nil
	}

	return reply, nil, nil
}

// complete sends one prompt+message completion call, retrying only
// quota/rate-limit failures with a fixed back-off up to maxRetries.
func (e *geminiExtractor) complete(ctx context.Context, prompt, message string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt+"\n\nUser Message:\n"+message, genai.RoleUser),
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		resp, err := e.genaiClient.Models.GenerateContent(ctx, e.modelName, contents, e.contentConfig)
		if err == nil {
			return e.extractText(ctx, resp)
		}
		lastErr = err

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			if attempt < e.maxRetries {
				e.log.WarnContext(ctx, "Gemini quota exceeded, backing off before retry",
					"attempt", attempt+1, "max_retries", e.maxRetries, "delay", e.retryDelay)
				if err := sleep(ctx, e.retryDelay); err != nil {
					return "", err
				}
				continue
			}
			e.log.ErrorContext(ctx, "Gemini quota retries exhausted", "max_retries", e.maxRetries, "error", err)
			return "", fmt.Errorf("gemini quota exceeded after %d retries: %w", e.maxRetries, err)
		}

		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return "", lastErr
}

func (e *geminiExtractor) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		e.log.ErrorContext(ctx, "Gemini request blocked by safety filter", "reason", reason)
		return "", fmt.Errorf("completion blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("completion returned no content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("completion returned empty text")
	}
	return text, nil
}

// parseTransactions parses the raw completion text into the typed
// transaction list. Invalid JSON degrades to an empty list; individual
// transactions failing validation are rejected with a warning rather than
// failing the batch.
func (e *geminiExtractor) parseTransactions(ctx context.Context, raw string) []Transaction {
	var payload extractionPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		e.log.WarnContext(ctx, "Extraction response is not valid JSON, treating as no transactions", "error", err)
		return nil
	}

	txns := make([]Transaction, 0, len(payload.Transactions))
	for i := range payload.Transactions {
		txn := payload.Transactions[i]
		txn.normalize()
		if err := e.validate.Struct(&txn); err != nil {
			e.log.WarnContext(ctx, "Rejecting structurally invalid transaction", "index", i, "error", err)
			continue
		}
		txns = append(txns, txn)
	}
	return txns
}

// stripFences removes markdown code-fence wrapping from a completion.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
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

// Package gateway implements the HTTP client for the WhatsApp MCP message
// gateway: delivering replies via the send_message tool and pulling message
// batches via the list_messages tool.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// callToolPath is the MCP tool invocation endpoint.
const callToolPath = "/mcp/callTool"

// Client defines the gateway operations used by the pipeline.
type Client interface {
	// SendMessage delivers a reply to the given JID. A non-2xx response is
	// returned as an error; callers log it and never retry.
	SendMessage(ctx context.Context, jid, message string) (*SendResponse, error)

	// ListMessages fetches up to limit messages received after the given
	// timestamp. Used by the gateway-pull ingestion mode.
	ListMessages(ctx context.Context, after string, limit int) ([]InboundMessage, error)
}

// SendResponse is the gateway's reply-delivery result.
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// InboundMessage is one message returned by the list_messages tool.
type InboundMessage struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	ChatJID   string `json:"chat_jid"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a gateway client against the given base URL.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) Client {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With("component", "gateway"),
	}
}

func (c *httpClient) SendMessage(ctx context.Context, jid, message string) (*SendResponse, error) {
	payload := map[string]any{
		"name": "send_message",
		"arguments": map[string]any{
			"jid":     jid,
			"message": message,
		},
	}

	body, status, err := c.callTool(ctx, payload)
	if err != nil {
		return nil, err
	}

	var result SendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}

	if status != http.StatusOK {
		return &result, fmt.Errorf("send_message failed with status %d: %s", status, string(body))
	}

	c.log.DebugContext(ctx, "Reply delivered", "jid", jid, "success", result.Success)
	return &result, nil
}

func (c *httpClient) ListMessages(ctx context.Context, after string, limit int) ([]InboundMessage, error) {
	payload := map[string]any{
		"name": "list_messages",
		"args": map[string]any{
			"after":           after,
			"limit":           limit,
			"include_context": false,
		},
	}

	body, status, err := c.callTool(ctx, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list_messages failed with status %d: %s", status, string(body))
	}

	var messages []InboundMessage
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode message list: %w", err)
	}

	c.log.DebugContext(ctx, "Fetched message batch", "count", len(messages))
	return messages, nil
}

// callTool POSTs one MCP tool invocation and returns the raw response body
// with its status code.
func (c *httpClient) callTool(ctx context.Context, payload any) ([]byte, int, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+callToolPath, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

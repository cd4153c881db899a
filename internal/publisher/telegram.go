package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"KinneretSentinel/internal/netutil"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramPublisher sends messages via the Telegram Bot API.
type TelegramPublisher struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	Logger   *slog.Logger
}

// NewTelegramPublisher creates a publisher with optional proxy support.
func NewTelegramPublisher(botToken, chatID, proxyURL string, logger *slog.Logger) *TelegramPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramPublisher{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  defaultTelegramAPI,
		Client:   netutil.NewClient(proxyURL, 30*time.Second),
		Logger:   logger,
	}
}

func (t *TelegramPublisher) Name() string { return "telegram" }

func (t *TelegramPublisher) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.APIBase, "/"), t.BotToken, name)
}

// Publish sends text as a plain message and returns the Telegram message id.
func (t *TelegramPublisher) Publish(ctx context.Context, text string) (string, error) {
	return t.send(ctx, text, "")
}

// Send sends an HTML-formatted message to the configured chat.
func (t *TelegramPublisher) Send(ctx context.Context, text string) error {
	_, err := t.send(ctx, text, "HTML")
	return err
}

func (t *TelegramPublisher) send(ctx context.Context, text, parseMode string) (string, error) {
	payload := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		if err != nil {
			return "", fmt.Errorf("telegram API error: status %d, read body: %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	// A 200 means the message was delivered; an unreadable body must not turn it into a failure.
	if err != nil {
		t.Logger.Warn("telegram accepted the message but the response body could not be read", "error", err)
		return "", nil
	}

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Logger.Warn("telegram accepted the message but the response could not be decoded", "body", string(respBody), "error", err)
		return "", nil
	}
	if !result.OK {
		return "", fmt.Errorf("telegram API error: %s", string(respBody))
	}
	return strconv.FormatInt(result.Result.MessageID, 10), nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramPublisher) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, text); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := time.Duration(1<<uint(i)) * time.Second
			t.Logger.Warn("telegram send failed, retrying",
				"attempt", i+1, "max_attempts", maxRetries+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

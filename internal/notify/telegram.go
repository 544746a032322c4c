package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a message to the configured chat using the sendMessage API with
// the title in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":                  t.chatID,
		"text":                     fmt.Sprintf("*%s*\n%s", escapeMarkdown(title), escapeMarkdown(message)),
		"parse_mode":               "Markdown",
		"disable_web_page_preview": "true",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

// escapeMarkdown neutralizes the legacy-Markdown control characters that
// appear in identifiers (underscores in event names, asterisks in free text)
// so Telegram does not reject or misrender the message.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)
	return r.Replace(s)
}

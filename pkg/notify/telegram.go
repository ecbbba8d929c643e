package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TelegramSender delivers messages through the Telegram Bot API.
type TelegramSender struct {
	token string
	http  *http.Client
}

func NewTelegramSender(token string) *TelegramSender {
	return &TelegramSender{
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramSendRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage posts one HTML-formatted message to a chat.
func (t *TelegramSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(telegramSendRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("notify.SendMessage marshal: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.SendMessage build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.SendMessage: %w", err)
	}
	defer resp.Body.Close()

	var out telegramSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("notify.SendMessage decode: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("notify.SendMessage: telegram API: %s", out.Description)
	}
	return nil
}

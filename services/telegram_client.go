package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clash-bot/config"
	"clash-bot/utils"
)

// ErrTelegram wraps a sendMessage call Telegram answered with ok=false.
var ErrTelegram = errors.New("telegram rejected message")

type TelegramClient struct {
	apiURL string
	token  string
	http   *http.Client
}

func NewTelegramClient(cfg config.TelegramConfig, client *http.Client) *TelegramClient {
	if client == nil {
		client = utils.NewHTTPClient(15 * time.Second)
	}
	return &TelegramClient{apiURL: cfg.APIURL, token: cfg.BotToken, http: client}
}

func (c *TelegramClient) Enabled() bool {
	return c != nil && c.token != ""
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendMessage posts HTML text to a chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	buf, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token), bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the token; keep it out of logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer utils.DrainAndClose(resp)

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram sendMessage: status %d: %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("%w: %s", ErrTelegram, out.Description)
	}
	return nil
}

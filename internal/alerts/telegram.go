package alerts

import (
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender posts alerts to a single Telegram chat.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender authenticates the bot token against the Telegram API.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	return NewTelegramSenderWithEndpoint(token, chatID, tgbotapi.APIEndpoint, &http.Client{})
}

// NewTelegramSenderWithEndpoint is NewTelegramSender against a custom API
// endpoint, a format string taking the token and method.
func NewTelegramSenderWithEndpoint(token string, chatID int64, endpoint string, client *http.Client) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

// Send implements Sender.
func (t *TelegramSender) Send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

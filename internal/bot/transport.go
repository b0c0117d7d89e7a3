// Package bot connects the watcher core to Telegram: the outbound message
// transport, the pinned-message synchronizer and the inbound command
// handlers.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Transport is the outbound messaging surface the synchronizer and command
// handlers talk to. Delete and Pin are best-effort operations for callers.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	PinMessage(ctx context.Context, chatID int64, messageID int) error
}

// Telegram implements Transport on the Bot API. A shared limiter paces every
// outbound call so bursts of server changes do not trip the API flood
// limits.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// NewTelegram wraps api with pacing of one call per every, allowing burst.
func NewTelegram(api *tgbotapi.BotAPI, every time.Duration, burst int) *Telegram {
	if burst < 1 {
		burst = 1
	}
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// SendMessage sends a silent Markdown message and returns its id.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableNotification = true

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of an existing message in place.
func (t *Telegram) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown

	_, err := t.api.Request(edit)
	return err
}

// DeleteMessage removes a message.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// PinMessage pins a message without notifying the chat.
func (t *Telegram) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := t.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

package infrastructure

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramChannel forwards digest notifications to a Telegram chat.
// A missing or invalid token leaves the channel disabled instead of
// failing startup.
type TelegramChannel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

func NewTelegramChannel(token string, chatID int64, logger zerolog.Logger) *TelegramChannel {
	if token == "" {
		return &TelegramChannel{chatID: chatID, log: logger}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot token issue, channel disabled")
		return &TelegramChannel{chatID: chatID, log: logger}
	}
	return &TelegramChannel{bot: bot, chatID: chatID, log: logger}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Enabled() bool { return t.bot != nil && t.chatID != 0 }

func (t *TelegramChannel) Send(ctx context.Context, message, url, groupLabel string) error {
	if !t.Enabled() {
		return fmt.Errorf("telegram channel not configured")
	}

	text := fmt.Sprintf("📱 *%s*\n\n%s\n\n🔗 %s", groupLabel, message, url)
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

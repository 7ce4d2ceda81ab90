package alerting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

// Notifier delivers a message to one chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
}

// TelegramNotifier sends through a telebot client.
type TelegramNotifier struct {
	bot    *tele.Bot
	logger zerolog.Logger
}

// NewTelegramNotifier wraps bot. The same bot may also be serving commands.
func NewTelegramNotifier(bot *tele.Bot, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// SendText calls sendMessage for chatID.
func (n *TelegramNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", chatID, err)
	}
	n.logger.Debug().Int64("chat_id", chatID).Msg("message sent")
	return nil
}

// SendPhoto uploads the file at path with caption.
func (n *TelegramNotifier) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.FromDisk(path), Caption: caption}
	if _, err := n.bot.Send(tele.ChatID(chatID), photo); err != nil {
		return fmt.Errorf("send telegram photo to %d: %w", chatID, err)
	}
	n.logger.Debug().Int64("chat_id", chatID).Str("image", path).Msg("photo sent")
	return nil
}

// NewBot builds a telebot client. offline skips the getMe handshake, which
// one-shot commands and tests use to avoid a network round trip.
func NewBot(token, apiURL string, poller tele.Poller, offline bool, onError func(error, tele.Context)) (*tele.Bot, error) {
	settings := tele.Settings{
		Token:   token,
		URL:     apiURL,
		Poller:  poller,
		Offline: offline,
		OnError: onError,
	}
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

var _ Notifier = (*TelegramNotifier)(nil)

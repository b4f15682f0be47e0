package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/region23/navatar/pkg/errors"
)

// TelegramSink отправляет алерты в чат Telegram
type TelegramSink struct {
	bot    *bot.Bot
	chatID int64
}

var _ AlertSink = (*TelegramSink)(nil)

// NewTelegramSink создает приемник. Проверка токена откладывается до RequestPermission.
func NewTelegramSink(token string, chatID int64, opts ...bot.Option) (*TelegramSink, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSink{bot: b, chatID: chatID}, nil
}

// RequestPermission разрешение есть, если задан чат и бот отвечает
func (t *TelegramSink) RequestPermission(ctx context.Context) (Permission, error) {
	if t.chatID == 0 {
		return PermissionDenied, nil
	}
	if _, err := t.bot.GetMe(ctx); err != nil {
		return PermissionDenied, fmt.Errorf("telegram getMe: %w", err)
	}
	return PermissionGranted, nil
}

func (t *TelegramSink) Alert(ctx context.Context, text string) error {
	if t.chatID == 0 {
		return errors.ErrAlertsUnavailable
	}
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

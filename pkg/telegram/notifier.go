package telegram

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier posts operational alerts into the admin chat.
type Notifier struct {
	sender messageSender
	chatID int64
}

// NewNotifier returns nil without error when Telegram is not configured, so
// callers can treat a nil *Notifier as "alerts off".
func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}
	return &Notifier{sender: b, chatID: cfg.AdminChatID}, nil
}

// Alert sends a titled HTML message. Fields render as "key: value" lines in order.
func (n *Notifier) Alert(ctx context.Context, title string, fields [][2]string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	if strings.TrimSpace(title) == "" {
		return errors.New("alert title is required")
	}
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      formatAlert(title, fields),
		ParseMode: models.ParseModeHTML,
	})
	return err
}

func formatAlert(title string, fields [][2]string) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>")
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(html.EscapeString(f[0]))
		b.WriteString(": <code>")
		b.WriteString(html.EscapeString(f[1]))
		b.WriteString("</code>")
	}
	return b.String()
}

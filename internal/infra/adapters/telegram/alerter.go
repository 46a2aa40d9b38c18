package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ adapter.Alerter = (*Alerter)(nil)

// Alerter posts operator alerts to one or more Telegram chats.
type Alerter struct {
	bot     botSender
	chatIDs []int64
}

func NewAlerter(cfg *config.TelegramAlertConfig) (*Alerter, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("telegram chat ids are empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newAlerter(bot, cfg.ChatIDs), nil
}

func newAlerter(bot botSender, chatIDs []int64) *Alerter {
	return &Alerter{bot: bot, chatIDs: append([]int64(nil), chatIDs...)}
}

// Alert tries every chat and joins the failures.
func (a *Alerter) Alert(ctx context.Context, text string) error {
	text = truncate("⚠️ funnel-billing\n"+text, maxMessageLen)
	var errs []error
	for _, id := range a.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := a.bot.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

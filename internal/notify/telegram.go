package notify

import (
	"errors"
	"fmt"

	"localhire/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends plain-text alerts to the admin chats.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

// NotifyAdmins tries every chat and returns the joined errors.
func (t *TelegramNotifier) NotifyAdmins(text string) error {
	if t == nil || t.bot == nil {
		return nil
	}
	var errs []error
	for _, id := range t.chatIDs {
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

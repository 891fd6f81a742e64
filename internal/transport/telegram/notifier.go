package telegram

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// MessageSender is the subset of *bot.Bot used for outbound notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier delivers rendered notifications through the bot API.
type Notifier struct {
	sender MessageSender
}

// NewNotifier creates a new bot notifier
func NewNotifier(sender MessageSender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends n as HTML with its inline keyboard. A recipient that blocked the bot
// or cannot be found yields ErrRecipientUnavailable.
func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	params := &bot.SendMessageParams{
		ChatID:             notification.TargetID,
		Text:               notification.Text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if markup := BuildMarkup(notification.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		if isRecipientUnavailable(err) {
			return oops.With("target_id", notification.TargetID).Wrap(errors.ErrRecipientUnavailable)
		}
		return oops.With("target_id", notification.TargetID).Wrap(err)
	}
	return nil
}

// BuildMarkup converts keyboard rows into a bot inline keyboard, nil when empty.
func BuildMarkup(rows [][]domain.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: lo.Map(rows, func(row []domain.Button, _ int) []models.InlineKeyboardButton {
			return lo.Map(row, func(button domain.Button, _ int) models.InlineKeyboardButton {
				return models.InlineKeyboardButton{
					Text:         button.Text,
					URL:          button.URL,
					CallbackData: button.CallbackData,
				}
			})
		}),
	}
}

func isRecipientUnavailable(err error) bool {
	if stderrors.Is(err, bot.ErrorForbidden) {
		return true
	}
	if stderrors.Is(err, bot.ErrorBadRequest) {
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "chat not found") || strings.Contains(msg, "user is deactivated")
	}
	return false
}

package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

type mockSender struct {
	params []*bot.SendMessageParams
	err    error
}

func (m *mockSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return &models.Message{ID: 1}, nil
}

func TestNotifier_Notify(t *testing.T) {
	sender := &mockSender{}
	notifier := NewNotifier(sender)

	err := notifier.Notify(context.Background(), domain.Notification{
		TargetID: 42,
		Text:     "<b>hit</b>",
		Keyboard: [][]domain.Button{
			{{Text: "ad", URL: "https://ad"}},
			{{Text: "close", CallbackData: "menu_monitor"}, {Text: "ban", CallbackData: "ban:7"}},
		},
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(sender.params) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(sender.params))
	}
	params := sender.params[0]
	if params.ChatID != int64(42) {
		t.Errorf("Expected chat 42, got %v", params.ChatID)
	}
	if params.ParseMode != models.ParseModeHTML {
		t.Errorf("Expected HTML parse mode, got %s", params.ParseMode)
	}
	markup, ok := params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected inline keyboard, got %T", params.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 || markup.InlineKeyboard[1][1].CallbackData != "ban:7" {
		t.Errorf("Unexpected keyboard: %+v", markup.InlineKeyboard)
	}
}

func TestNotifier_ForbiddenMapsToUnavailable(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"forbidden", fmt.Errorf("%w, bot was blocked by the user", bot.ErrorForbidden), true},
		{"chat not found", fmt.Errorf("%w, Bad Request: chat not found", bot.ErrorBadRequest), true},
		{"other bad request", fmt.Errorf("%w, Bad Request: message is too long", bot.ErrorBadRequest), false},
		{"network", stderrors.New("connection reset"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := NewNotifier(&mockSender{err: tc.err})
			err := notifier.Notify(context.Background(), domain.Notification{TargetID: 1, Text: "x"})
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := stderrors.Is(err, errors.ErrRecipientUnavailable); got != tc.unavailable {
				t.Errorf("Expected unavailable=%v, got %v (%v)", tc.unavailable, got, err)
			}
		})
	}
}

func TestBuildMarkup_Empty(t *testing.T) {
	if BuildMarkup(nil) != nil {
		t.Error("Expected nil markup for empty keyboard")
	}
}

package userbot

import (
	"context"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

// DirectSender sends one direct message per call from a short-lived client.
type DirectSender struct {
	appID   int
	appHash string
}

// NewDirectSender creates a one-shot sender for outbound accounts
func NewDirectSender(appID int, appHash string) *DirectSender {
	return &DirectSender{appID: appID, appHash: appHash}
}

// SendDirect connects with credential, sends text to @username and disconnects.
func (s *DirectSender) SendDirect(ctx context.Context, credential, username, text string) error {
	storage, err := sessionStorage(ctx, credential)
	if err != nil {
		return err
	}

	client := telegram.NewClient(s.appID, s.appHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return oops.With("target", username).Wrap(err)
		}
		if !status.Authorized {
			return errors.ErrSessionUnauthorized
		}

		sender := message.NewSender(client.API())
		if _, err := sender.Resolve(username).Text(ctx, text); err != nil {
			return oops.With("target", username, "context", "failed to send direct message").Wrap(err)
		}
		return nil
	})
}

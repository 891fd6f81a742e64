package userbot

import (
	"context"
	"strings"

	"github.com/gotd/td/session"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/oops"
)

// sessionStorage loads a stored credential into memory. Telethon string sessions are
// converted; anything else is treated as a gotd session blob.
func sessionStorage(ctx context.Context, credential string) (*session.StorageMemory, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, errors.ErrSessionUnauthorized
	}

	storage := new(session.StorageMemory)
	if data, err := session.TelethonSession(credential); err == nil {
		loader := session.Loader{Storage: storage}
		if err := loader.Save(ctx, data); err != nil {
			return nil, oops.With("context", "converting telethon session").Wrap(err)
		}
		return storage, nil
	}

	if err := storage.StoreSession(ctx, []byte(credential)); err != nil {
		return nil, oops.With("context", "loading session").Wrap(err)
	}
	return storage, nil
}

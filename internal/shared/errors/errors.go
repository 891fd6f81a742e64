package errors

import "errors"

var (
	ErrMissingBotToken      = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingAPICreds      = errors.New("TELEGRAM_API_ID and TELEGRAM_API_HASH are required for the worker")
	ErrUnauthorized         = errors.New("unauthorized user")
	ErrSubscriberNotFound   = errors.New("subscriber not found")
	ErrRecipientUnavailable = errors.New("recipient has blocked the bot or left the chat")
	ErrNoListeningSessions  = errors.New("no online worker sessions")
	ErrSessionUnauthorized  = errors.New("session is not authorized")
	ErrCacheNotLoaded       = errors.New("config cache has not been loaded")
	ErrPoolClosed           = errors.New("worker pool is closed")
	ErrPoolFull             = errors.New("worker pool is saturated")
	ErrUnsupportedDriver    = errors.New("unsupported database driver")
	ErrNoDatabase           = errors.New("no usable database connection")
	ErrInvalidArgument      = errors.New("invalid argument")
)

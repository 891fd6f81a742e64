package service

import (
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
)

// Reason names the filter that suppressed a notification; empty means delivered.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonPaused        Reason = "paused"
	ReasonTooLong       Reason = "too_long"
	ReasonFilterWord    Reason = "filter_word"
	ReasonBlockedSender Reason = "blocked_sender"
	ReasonSpam          Reason = "spam"
)

// Filters holds the per-subscriber lookups the chain needs from a snapshot.
type Filters interface {
	HasFilterWord(uid int64, text string) bool
	IsBlocked(uid, senderID int64) bool
}

// Evaluate runs the filter chain in order and stops at the first failing filter.
func Evaluate(filters Filters, cfg domain.SubscriberConfig, text string, senderID int64, isSpam func(string) bool) Reason {
	switch {
	case cfg.Paused:
		return ReasonPaused
	case cfg.ExceedsLimit(text):
		return ReasonTooLong
	case filters.HasFilterWord(cfg.UID, text):
		return ReasonFilterWord
	case filters.IsBlocked(cfg.UID, senderID):
		return ReasonBlockedSender
	case cfg.AIFilter && isSpam(text):
		return ReasonSpam
	default:
		return ReasonNone
	}
}

package domain

import (
	"strconv"
	"strings"
	"time"
)

// FuzzyLimitPresets are the length caps offered in the bot UI; 0 disables the cap.
var FuzzyLimitPresets = []int{10, 30, 50, 0}

const adSettingPrefix = "btn_ad_"

// Subscriber is an end user who owns keywords and receives notifications.
type Subscriber struct {
	ID               int64      `json:"id" db:"id"`
	TgID             int64      `json:"tg_id" db:"tg_id"`
	Username         *string    `json:"username" db:"username"`
	Role             *string    `json:"role" db:"role"`
	ExpireAt         *time.Time `json:"expire_at" db:"expire_at"`
	IsBanned         bool       `json:"is_banned" db:"is_banned"`
	IsPaused         bool       `json:"is_paused" db:"is_paused"`
	SimpleMode       bool       `json:"notify_simple_mode" db:"notify_simple_mode"`
	NotifyTargetID   *int64     `json:"notify_target_id" db:"notify_target_id"`
	NotifyTargetName *string    `json:"notify_target_name" db:"notify_target_name"`
	FuzzyLimit       int        `json:"fuzzy_limit" db:"fuzzy_limit"`
	AIFilterEnabled  bool       `json:"ai_filter_enabled" db:"ai_filter_enabled"`
}

// Active reports whether the subscriber may receive notifications at now.
func (s *Subscriber) Active(now time.Time) bool {
	return !s.IsBanned && (s.ExpireAt == nil || s.ExpireAt.After(now))
}

type Keyword struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Word   string `json:"word" db:"word"`
}

type FilterWord struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Word   string `json:"word" db:"word"`
}

type BlockedSender struct {
	ID          int64   `json:"id" db:"id"`
	UserID      int64   `json:"user_id" db:"user_id"`
	BlockedID   int64   `json:"blocked_id" db:"blocked_id"`
	BlockedName *string `json:"blocked_name" db:"blocked_name"`
}

// KeywordSubscription is one (keyword, subscriber settings) row read during a cache refresh.
type KeywordSubscription struct {
	Word            string     `db:"word"`
	TgID            int64      `db:"tg_id"`
	IsPaused        bool       `db:"is_paused"`
	SimpleMode      bool       `db:"notify_simple_mode"`
	NotifyTargetID  *int64     `db:"notify_target_id"`
	FuzzyLimit      int        `db:"fuzzy_limit"`
	AIFilterEnabled bool       `db:"ai_filter_enabled"`
	IsBanned        bool       `db:"is_banned"`
	ExpireAt        *time.Time `db:"expire_at"`
}

// SubscriberFilterWord pairs a subscriber tg id with one blocklist word.
type SubscriberFilterWord struct {
	TgID int64  `db:"tg_id"`
	Word string `db:"word"`
}

// SubscriberBlock pairs a subscriber tg id with a sender they blocked.
type SubscriberBlock struct {
	TgID      int64 `db:"tg_id"`
	BlockedID int64 `db:"blocked_id"`
}

// AdSetting is a system_settings row describing one promotional button.
type AdSetting struct {
	Key         string  `db:"key"`
	Value       string  `db:"value"`
	Description *string `db:"description"`
}

// IsAd reports whether the key follows the btn_ad_<n>_<text> convention.
func (a AdSetting) IsAd() bool {
	return strings.HasPrefix(a.Key, adSettingPrefix) && a.ButtonText() != ""
}

// ButtonText is everything after the third underscore of the key.
func (a AdSetting) ButtonText() string {
	parts := strings.SplitN(a.Key, "_", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

// Position orders ad buttons; descriptions that are not integers sort last.
func (a AdSetting) Position() int {
	if a.Description == nil {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(strings.TrimSpace(*a.Description))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

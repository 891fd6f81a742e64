package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// PreviewLimit caps the message excerpt in a notification, in characters.
	PreviewLimit = 200
	// NoLinkPlaceholder replaces the deep link for chats without a public username.
	NoLinkPlaceholder = "私有群/无链接"
	// DefaultChatTitle is shown when the source chat has no title.
	DefaultChatTitle = "私聊"
)

// DisplayZone is the fixed UTC+8 offset used for capture timestamps.
var DisplayZone = time.FixedZone("UTC+8", 8*60*60)

// Sender is the author of an inbound chat message.
type Sender struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// DisplayName joins first and last name.
func (s *Sender) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Message is an inbound group or channel message observed by a listening session.
type Message struct {
	ChatID       int64     `json:"chat_id"`
	ChatTitle    string    `json:"chat_title"`
	ChatUsername string    `json:"chat_username"`
	MessageID    int       `json:"message_id"`
	Text         string    `json:"text"`
	Caption      string    `json:"caption"`
	Sender       *Sender   `json:"sender,omitempty"`
	Date         time.Time `json:"date"`
}

// Content prefers the message text and falls back to the media caption.
func (m *Message) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// Link is the public t.me deep link, empty when the chat has no username.
func (m *Message) Link() string {
	if m.ChatUsername == "" || m.MessageID == 0 {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", m.ChatUsername, m.MessageID)
}

func (m *Message) SenderID() int64 {
	if m.Sender == nil {
		return 0
	}
	return m.Sender.ID
}

func (m *Message) SenderUsername() string {
	if m.Sender == nil {
		return ""
	}
	return m.Sender.Username
}

// SubscriberConfig is the per-keyword view of one subscriber's notification settings.
type SubscriberConfig struct {
	UID      int64  `json:"uid"`
	Paused   bool   `json:"paused"`
	Simple   bool   `json:"simple"`
	Target   *int64 `json:"target,omitempty"`
	Limit    int    `json:"limit"`
	AIFilter bool   `json:"ai"`
}

// TargetID is where notifications go: the configured target, else the subscriber.
func (c SubscriberConfig) TargetID() int64 {
	if c.Target != nil && *c.Target != 0 {
		return *c.Target
	}
	return c.UID
}

// ExceedsLimit reports whether text is longer than the subscriber's cap.
func (c SubscriberConfig) ExceedsLimit(text string) bool {
	return c.Limit > 0 && utf8.RuneCountInString(text) > c.Limit
}

// Button is one inline keyboard button; exactly one of URL or CallbackData is set.
type Button struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Notification is a rendered message for one delivery target.
type Notification struct {
	TargetID int64      `json:"target_id"`
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard"`
}

// HitEvent describes one matched message after fan-out.
type HitEvent struct {
	Keyword     string    `json:"keyword"`
	ChatID      int64     `json:"chat_id"`
	ChatTitle   string    `json:"chat_title"`
	MessageLink string    `json:"message_link,omitempty"`
	SenderID    int64     `json:"sender_id"`
	Subscribers int       `json:"subscribers"`
	Delivered   int       `json:"delivered"`
	Suppressed  int       `json:"suppressed"`
	CapturedAt  time.Time `json:"captured_at"`
}

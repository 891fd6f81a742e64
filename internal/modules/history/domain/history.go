package domain

import "time"

const (
	// RecentLimit is how many past hits are read back to annotate a notification.
	RecentLimit = 5
	// Placeholder is rendered when a sender has no usable history.
	Placeholder = "无"
)

// Record is one keyword hit attributed to the sender of the matched message.
type Record struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Keyword   string    `json:"keyword" db:"keyword"`
	MsgLink   string    `json:"msg_link" db:"msg_link"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasLink reports whether the record points at a reachable public message.
func (r Record) HasLink() bool {
	return r.MsgLink != ""
}

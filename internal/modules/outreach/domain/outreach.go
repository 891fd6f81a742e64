package domain

import "time"

// Account is an outbound userbot identity used only for automated direct messages.
type Account struct {
	ID            int64         `json:"id" db:"id"`
	OwnerID       int64         `json:"owner_id" db:"owner_id"`
	Phone         *string       `json:"phone" db:"phone"`
	SessionString string        `json:"-" db:"session_string"`
	Status        AccountStatus `json:"status" db:"status"`
	DailySent     int           `json:"daily_sent" db:"daily_sent"`
	DailyLimit    int           `json:"daily_limit" db:"daily_limit"`
	LastUsedAt    *time.Time    `json:"last_used_at" db:"last_used_at"`
}

func (a *Account) Label() string {
	if a.Phone != nil && *a.Phone != "" {
		return *a.Phone
	}
	return "account"
}

// Plan is what a subscriber has configured for automated replies.
type Plan struct {
	AutoReply bool
	Account   *Account
	Content   string
}

// Ready reports whether a direct message can be scheduled from this plan.
func (p *Plan) Ready() bool {
	return p != nil && p.AutoReply && p.Account != nil && p.Content != ""
}

// Task is one scheduled direct message.
type Task struct {
	SubscriberID   int64
	AccountID      int64
	Session        string
	TargetUsername string
	Text           string
}

// Overview summarises a subscriber's automated reply setup for the bot UI.
type Overview struct {
	AccountCount int
	AutoReply    bool
	Content      string
}

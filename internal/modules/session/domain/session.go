package domain

import "time"

// WorkerSession is a userbot login that listens to group chats for keyword hits.
type WorkerSession struct {
	ID            int64        `json:"id" db:"id"`
	Phone         *string      `json:"phone" db:"phone"`
	SessionString string       `json:"-" db:"session_string"`
	Status        WorkerStatus `json:"status" db:"status"`
	LastActive    *time.Time   `json:"last_active" db:"last_active"`
}

// Label identifies the session in logs without exposing the credential.
func (s *WorkerSession) Label() string {
	if s.Phone != nil && *s.Phone != "" {
		return *s.Phone
	}
	return "session"
}

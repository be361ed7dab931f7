package session

import "time"

// Session captures a chat contact started through the relay.
type Session struct {
	ContactID        string    `json:"contactId"`
	ParticipantID    string    `json:"participantId"`
	ParticipantToken string    `json:"-"`
	ConnectionToken  string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Age reports how long ago the session was created.
func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

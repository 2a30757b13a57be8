package models

import "time"

// Message is a stored direct message as returned right after creation.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

// MessageDetail embeds both parties.
type MessageDetail struct {
	ID       int64       `json:"id"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
	FromUser UserSummary `json:"from_user"`
	ToUser   UserSummary `json:"to_user"`
}

// HasParticipant reports whether username sent or received the message.
func (m MessageDetail) HasParticipant(username string) bool {
	return username != "" && (m.FromUser.Username == username || m.ToUser.Username == username)
}

type SentMessage struct {
	ID     int64       `json:"id"`
	ToUser UserSummary `json:"to_user"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
}

type ReceivedMessage struct {
	ID       int64       `json:"id"`
	FromUser UserSummary `json:"from_user"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
}

type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

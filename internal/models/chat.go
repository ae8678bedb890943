package models

import "time"

// Chat session status values.
const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// Message sender kinds. The sender is a closed tag plus an explicit id,
// never inferred from connection context.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// ValidSender reports whether s is a known sender kind.
func ValidSender(s string) bool {
	return s == SenderUser || s == SenderAgent
}

// Message is a single chat message. Timestamps are assigned at server
// append time so ordering within a session is trustworthy.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"-" db:"session_id"`
	Sender    string    `json:"sender" db:"sender"`
	SenderID  string    `json:"senderId" db:"sender_id"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
	IsRead    bool      `json:"isRead" db:"is_read"`
}

// ChatSession is one support conversation between a requester and the
// agent it was routed to. AgentID never changes after creation.
type ChatSession struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	AgentID        string    `json:"agentId" db:"agent_id"`
	Topic          string    `json:"topic" db:"topic"`
	Status         string    `json:"status" db:"status"`
	LastActivityAt time.Time `json:"lastActivityAt" db:"last_activity_at"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	Messages       []Message `json:"messages" db:"-"`

	// Agent is the public summary of the assigned agent, populated on
	// reads for chat headers. Not persisted with the session row.
	Agent *AgentView `json:"agent,omitempty" db:"-"`
}

// IsClosed reports whether the session no longer accepts messages.
func (s *ChatSession) IsClosed() bool {
	return s.Status == SessionStatusClosed
}

// Counterpart returns the personal channel owner on the other side of the
// conversation from the given sender kind.
func (s *ChatSession) Counterpart(sender string) (kind, id string) {
	if sender == SenderUser {
		return SenderAgent, s.AgentID
	}
	return SenderUser, s.UserID
}

package models

import "time"

// Agent availability status values.
const (
	AgentStatusOnline  = "online"
	AgentStatusOffline = "offline"
	AgentStatusBusy    = "busy"
)

// Topics a chat can be routed on. Agents list the topics they handle in
// their specialization set; "general" specialists take anything.
const (
	TopicSchedule = "schedule"
	TopicBooking  = "booking"
	TopicLocation = "location"
	TopicGeneral  = "general"
)

// DefaultMaxActiveSessions is the capacity assigned to new agents unless
// configured otherwise.
const DefaultMaxActiveSessions = 5

// ValidTopic reports whether t is one of the routing topics.
func ValidTopic(t string) bool {
	switch t {
	case TopicSchedule, TopicBooking, TopicLocation, TopicGeneral:
		return true
	}
	return false
}

// NormalizeTopic maps an empty or unrecognized topic to "general".
func NormalizeTopic(t string) string {
	if !ValidTopic(t) {
		return TopicGeneral
	}
	return t
}

// ValidAgentStatus reports whether s is a known agent status.
func ValidAgentStatus(s string) bool {
	switch s {
	case AgentStatusOnline, AgentStatusOffline, AgentStatusBusy:
		return true
	}
	return false
}

// Agent is a support agent account. PasswordHash never leaves the server;
// handlers respond with AgentView instead.
type Agent struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	Avatar            string    `json:"avatar" db:"avatar"`
	Status            string    `json:"status" db:"status"`
	Specialization    []string  `json:"specialization" db:"-"`
	MaxActiveSessions int       `json:"maxActiveSessions" db:"max_active_sessions"`
	IsAccepting       bool      `json:"isAccepting" db:"is_accepting"`
	Rating            float64   `json:"rating" db:"rating"`
	TotalChats        int       `json:"totalChats" db:"total_chats"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// HandlesTopic reports whether the agent's specialization set covers the
// given topic. A "general" specialist handles every topic.
func (a *Agent) HandlesTopic(topic string) bool {
	for _, s := range a.Specialization {
		if s == topic || s == TopicGeneral {
			return true
		}
	}
	return false
}

// AgentView is the public projection of an Agent, safe to return to
// requesters picking an agent or rendering a chat header.
type AgentView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Avatar         string   `json:"avatar"`
	Status         string   `json:"status"`
	Specialization []string `json:"specialization"`
}

// View returns the public projection of the agent.
func (a *Agent) View() AgentView {
	return AgentView{
		ID:             a.ID,
		Name:           a.Name,
		Avatar:         a.Avatar,
		Status:         a.Status,
		Specialization: a.Specialization,
	}
}

// Package chat implements session routing and the message pipeline: it
// assigns incoming support requests to eligible agents, appends messages
// to the durable log and fans them out over the realtime hub.
package chat

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/transitdesk/transitdesk/internal/metrics"
	"github.com/transitdesk/transitdesk/internal/models"
	"github.com/transitdesk/transitdesk/internal/realtime"
	"github.com/transitdesk/transitdesk/internal/registry"
	"github.com/transitdesk/transitdesk/internal/repository"
)

// Service-level failure modes. Capacity exhaustion and stale-state
// conflicts are expected branches, not server faults.
var (
	ErrNoEligibleAgent = errors.New("no eligible agent")
	ErrSessionClosed   = errors.New("session closed")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrInvalidSender   = errors.New("invalid sender")
	ErrMissingUserID   = errors.New("userId is required")
)

// Broadcaster is the realtime fan-out edge. The hub implements it; tests
// substitute a recorder.
type Broadcaster interface {
	EmitToChannel(channel, event string, payload interface{})
}

// noopBroadcaster drops every event.
type noopBroadcaster struct{}

func (noopBroadcaster) EmitToChannel(string, string, interface{}) {}

// Service coordinates the agent registry, the durable stores and the
// realtime hub.
type Service struct {
	agents    repository.AgentRepository
	chats     repository.ChatRepository
	registry  *registry.Registry
	broadcast Broadcaster
	sanitizer *bluemonday.Policy
	logger    *log.Logger
}

// NewService wires a chat service. broadcast may be nil when no realtime
// layer is attached (tests, batch tools).
func NewService(agents repository.AgentRepository, chats repository.ChatRepository, reg *registry.Registry, broadcast Broadcaster) *Service {
	if broadcast == nil {
		broadcast = noopBroadcaster{}
	}
	return &Service{
		agents:    agents,
		chats:     chats,
		registry:  reg,
		broadcast: broadcast,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
}

// OpenSession routes a new support request. It atomically reserves
// capacity on an eligible agent, persists the session and rolls the
// reservation back if persistence fails.
func (s *Service) OpenSession(userID, topic string) (*models.ChatSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	topic = models.NormalizeTopic(topic)

	sessionID := uuid.NewString()
	agent, ok := s.registry.Reserve(topic, sessionID)
	if !ok {
		metrics.Chat().RoutingFailures.Inc()
		return nil, ErrNoEligibleAgent
	}

	now := time.Now().UTC()
	session := &models.ChatSession{
		ID:             sessionID,
		UserID:         userID,
		AgentID:        agent.ID,
		Topic:          topic,
		Status:         models.SessionStatusActive,
		LastActivityAt: now,
		CreatedAt:      now,
		Messages:       []models.Message{},
	}

	if err := s.chats.CreateSession(session); err != nil {
		s.registry.Release(agent.ID, sessionID)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if err := s.agents.IncrementTotalChats(agent.ID); err != nil {
		// Stats only; the session is live either way.
		s.logger.Printf("total_chats increment failed for %s: %v", agent.ID, err)
	}

	metrics.Chat().SessionsOpened.Inc()
	metrics.Chat().ActiveSessions.Inc()

	view := agent.View()
	session.Agent = &view
	return session, nil
}

// PostMessage appends a message to an active session and pushes it to the
// session channel, the counterpart's personal channel and a confirmation
// to the sender's own channel.
func (s *Service) PostMessage(sessionID, sender, senderID, content string) (*models.ChatSession, error) {
	if !models.ValidSender(sender) {
		return nil, ErrInvalidSender
	}
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, ErrEmptyContent
	}

	session, err := s.chats.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsClosed() {
		return nil, ErrSessionClosed
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Now().UTC(),
		IsRead:    false,
	}
	if err := s.chats.AppendMessage(sessionID, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	metrics.Chat().MessagesPosted.Inc()

	session.Messages = append(session.Messages, *msg)
	session.LastActivityAt = msg.Timestamp

	payload := map[string]interface{}{"chatId": sessionID, "message": msg}
	s.broadcast.EmitToChannel(realtime.ChatChannel(sessionID), "new-message", payload)

	counterpartKind, counterpartID := session.Counterpart(sender)
	s.broadcast.EmitToChannel(personalChannel(counterpartKind, counterpartID), "new-message", payload)
	s.broadcast.EmitToChannel(personalChannel(sender, senderID), "message-sent", payload)

	s.attachAgentView(session)
	return session, nil
}

// MarkRead flips isRead on every message not sent by the reader.
// Idempotent.
func (s *Service) MarkRead(sessionID, readerID string) (*models.ChatSession, error) {
	if _, err := s.chats.GetSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.chats.MarkRead(sessionID, readerID); err != nil {
		return nil, err
	}
	session, err := s.chats.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.attachAgentView(session)
	return session, nil
}

// CloseSession closes the session and releases the agent's capacity.
// Closing twice is a no-op: the conditional status transition guarantees
// the release happens at most once.
func (s *Service) CloseSession(sessionID string) (*models.ChatSession, error) {
	session, err := s.chats.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.chats.CloseSession(sessionID)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.registry.Release(session.AgentID, sessionID)
		metrics.Chat().SessionsClosed.Inc()
		metrics.Chat().ActiveSessions.Dec()
	}

	session.Status = models.SessionStatusClosed
	s.attachAgentView(session)
	return session, nil
}

// GetSession returns one session with its message log and agent summary.
func (s *Service) GetSession(sessionID string) (*models.ChatSession, error) {
	session, err := s.chats.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.attachAgentView(session)
	return session, nil
}

// SessionsForUser lists a requester's sessions, newest activity first.
func (s *Service) SessionsForUser(userID string) ([]*models.ChatSession, error) {
	sessions, err := s.chats.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		s.attachAgentView(sess)
	}
	return sessions, nil
}

// SessionsForAgent lists an agent's sessions, newest activity first.
func (s *Service) SessionsForAgent(agentID string) ([]*models.ChatSession, error) {
	sessions, err := s.chats.ListByAgent(agentID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		s.attachAgentView(sess)
	}
	return sessions, nil
}

// CloseIdle closes every active session whose last activity predates the
// cutoff, releasing agent capacity through the normal close path. Returns
// the number of sessions closed.
func (s *Service) CloseIdle(olderThan time.Time) (int, error) {
	idle, err := s.chats.ListIdleActive(olderThan)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, sess := range idle {
		if _, err := s.CloseSession(sess.ID); err != nil {
			s.logger.Printf("failed to close idle session %s: %v", sess.ID, err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *Service) attachAgentView(session *models.ChatSession) {
	agent, err := s.agents.GetByID(session.AgentID)
	if err != nil {
		return
	}
	view := agent.View()
	session.Agent = &view
}

func personalChannel(kind, id string) string {
	if kind == models.SenderAgent {
		return realtime.AgentChannel(id)
	}
	return realtime.UserChannel(id)
}

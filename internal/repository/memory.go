package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/transitdesk/transitdesk/internal/models"
)

// MemoryAgentRepository is an in-memory AgentRepository used by unit tests
// and by environments without a database.
type MemoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[string]*models.Agent
}

// NewMemoryAgentRepository creates an empty in-memory agent repository.
func NewMemoryAgentRepository() *MemoryAgentRepository {
	return &MemoryAgentRepository{agents: make(map[string]*models.Agent)}
}

func (r *MemoryAgentRepository) Create(agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if strings.EqualFold(a.Email, agent.Email) {
			return ErrDuplicateEmail
		}
	}
	cp := *agent
	r.agents[agent.ID] = &cp
	return nil
}

func (r *MemoryAgentRepository) GetByID(agentID string) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAgentRepository) GetByEmail(email string) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAgentRepository) List() ([]*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryAgentRepository) UpdateProfile(agentID, name, avatar string, specialization []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	if name != "" {
		a.Name = name
	}
	if avatar != "" {
		a.Avatar = avatar
	}
	if specialization != nil {
		a.Specialization = append([]string(nil), specialization...)
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryAgentRepository) UpdateStatus(agentID, status string, isAccepting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.IsAccepting = isAccepting
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryAgentRepository) IncrementTotalChats(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	a.TotalChats++
	return nil
}

// MemoryChatRepository is an in-memory ChatRepository used by unit tests.
type MemoryChatRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.ChatSession

	// failCreate forces CreateSession to fail; tests use it to exercise
	// the router's reservation rollback.
	failCreate error
}

// NewMemoryChatRepository creates an empty in-memory chat repository.
func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{sessions: make(map[string]*models.ChatSession)}
}

// FailNextCreate makes the next CreateSession calls return err (nil resets).
func (r *MemoryChatRepository) FailNextCreate(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = err
}

func (r *MemoryChatRepository) CreateSession(session *models.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *session
	cp.Messages = append([]models.Message(nil), session.Messages...)
	r.sessions[session.ID] = &cp
	return nil
}

func (r *MemoryChatRepository) GetSession(sessionID string) (*models.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (r *MemoryChatRepository) ListByUser(userID string) ([]*models.ChatSession, error) {
	return r.listWhere(func(s *models.ChatSession) bool { return s.UserID == userID })
}

func (r *MemoryChatRepository) ListByAgent(agentID string) ([]*models.ChatSession, error) {
	return r.listWhere(func(s *models.ChatSession) bool { return s.AgentID == agentID })
}

func (r *MemoryChatRepository) listWhere(match func(*models.ChatSession) bool) ([]*models.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.ChatSession{}
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.After(out[j].LastActivityAt) })
	return out, nil
}

func (r *MemoryChatRepository) AppendMessage(sessionID string, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.Messages = append(s.Messages, *msg)
	s.LastActivityAt = msg.Timestamp
	return nil
}

func (r *MemoryChatRepository) MarkRead(sessionID, readerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	for i := range s.Messages {
		if s.Messages[i].SenderID != readerID {
			s.Messages[i].IsRead = true
		}
	}
	return nil
}

func (r *MemoryChatRepository) CloseSession(sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status == models.SessionStatusClosed {
		return false, nil
	}
	s.Status = models.SessionStatusClosed
	return true, nil
}

func (r *MemoryChatRepository) ListIdleActive(olderThan time.Time) ([]*models.ChatSession, error) {
	return r.listWhere(func(s *models.ChatSession) bool {
		return s.Status == models.SessionStatusActive && s.LastActivityAt.Before(olderThan)
	})
}

func (r *MemoryChatRepository) CountActiveByAgent() (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string][]string)
	for _, s := range r.sessions {
		if s.Status == models.SessionStatusActive {
			result[s.AgentID] = append(result[s.AgentID], s.ID)
		}
	}
	return result, nil
}

func copySession(s *models.ChatSession) *models.ChatSession {
	cp := *s
	cp.Messages = append([]models.Message(nil), s.Messages...)
	return &cp
}

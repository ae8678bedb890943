// Package agents manages agent accounts and keeps the routing registry in
// step with durable agent state.
package agents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/transitdesk/transitdesk/internal/auth"
	"github.com/transitdesk/transitdesk/internal/models"
	"github.com/transitdesk/transitdesk/internal/registry"
	"github.com/transitdesk/transitdesk/internal/repository"
)

// ErrInvalidCredentials is returned on a failed login. The caller cannot
// tell an unknown email from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles agent account operations. Every durable mutation is
// mirrored into the registry so routing sees it immediately.
type Service struct {
	repo       repository.AgentRepository
	registry   *registry.Registry
	jwt        *auth.JWTManager
	defaultMax int
}

// NewService wires the agent account service.
func NewService(repo repository.AgentRepository, reg *registry.Registry, jwt *auth.JWTManager, defaultMaxSessions int) *Service {
	if defaultMaxSessions <= 0 {
		defaultMaxSessions = models.DefaultMaxActiveSessions
	}
	return &Service{repo: repo, registry: reg, jwt: jwt, defaultMax: defaultMaxSessions}
}

// Create registers a new agent account with a hashed password. The agent
// starts offline with the default capacity.
func (s *Service) Create(name, email, password string, specialization []string) (*models.Agent, error) {
	if len(specialization) == 0 {
		specialization = []string{models.TopicGeneral}
	}
	for _, t := range specialization {
		if !models.ValidTopic(t) {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:      hash,
		Status:            models.AgentStatusOffline,
		Specialization:    specialization,
		MaxActiveSessions: s.defaultMax,
		IsAccepting:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(agent); err != nil {
		return nil, err
	}
	s.registry.Upsert(agent)
	return agent, nil
}

// Login verifies credentials, marks the agent online and issues a token.
func (s *Service) Login(email, password string) (*models.Agent, string, error) {
	agent, err := s.repo.GetByEmail(email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(agent.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	if err := s.SetStatus(agent.ID, models.AgentStatusOnline, agent.IsAccepting); err != nil {
		return nil, "", err
	}
	agent.Status = models.AgentStatusOnline

	token, err := s.jwt.Generate(agent.ID, agent.Email)
	if err != nil {
		return nil, "", err
	}
	return agent, token, nil
}

// Logout marks the agent offline. Idempotent; logging out twice is fine.
func (s *Service) Logout(agentID string) (*models.Agent, error) {
	agent, err := s.repo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(agentID, models.AgentStatusOffline, agent.IsAccepting); err != nil {
		return nil, err
	}
	s.registry.SetOffline(agentID)
	agent.Status = models.AgentStatusOffline
	return agent, nil
}

// SetStatus updates availability in both stores. Existing sessions keep
// running regardless of the new status.
func (s *Service) SetStatus(agentID, status string, isAccepting bool) error {
	if !models.ValidAgentStatus(status) {
		return fmt.Errorf("unknown agent status %q", status)
	}
	if err := s.repo.UpdateStatus(agentID, status, isAccepting); err != nil {
		return err
	}
	// Registry may not know the agent yet if it was created before the
	// last restart and never reloaded; refresh from the store then.
	if err := s.registry.SetStatus(agentID, status, isAccepting); errors.Is(err, registry.ErrUnknownAgent) {
		if agent, repoErr := s.repo.GetByID(agentID); repoErr == nil {
			s.registry.Upsert(agent)
		}
	}
	return nil
}

// UpdateProfile updates name, avatar and specializations.
func (s *Service) UpdateProfile(agentID, name, avatar string, specialization []string) (*models.Agent, error) {
	if specialization != nil {
		for _, t := range specialization {
			if !models.ValidTopic(t) {
				return nil, fmt.Errorf("unknown topic %q", t)
			}
		}
	}
	if err := s.repo.UpdateProfile(agentID, name, avatar, specialization); err != nil {
		return nil, err
	}
	agent, err := s.repo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	s.registry.Upsert(agent)
	return agent, nil
}

// Get returns one agent.
func (s *Service) Get(agentID string) (*models.Agent, error) {
	return s.repo.GetByID(agentID)
}

// List returns all agents.
func (s *Service) List() ([]*models.Agent, error) {
	return s.repo.List()
}

// Available lists online, accepting agents, optionally filtered by topic.
func (s *Service) Available(topic string) []models.AgentView {
	if topic != "" {
		topic = models.NormalizeTopic(topic)
	}
	return s.registry.Available(topic)
}

// LoadRegistry seeds the routing registry from the durable stores: every
// agent record plus its currently active session assignments.
func (s *Service) LoadRegistry(chats repository.ChatRepository) error {
	all, err := s.repo.List()
	if err != nil {
		return fmt.Errorf("failed to load agents: %w", err)
	}
	for _, agent := range all {
		s.registry.Upsert(agent)
	}
	active, err := chats.CountActiveByAgent()
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}
	for agentID, sessionIDs := range active {
		s.registry.Seed(agentID, sessionIDs)
	}
	return nil
}

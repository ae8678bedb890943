package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/transitdesk/transitdesk/internal/models"
)

// AgentRepository defines the interface for agent account operations.
type AgentRepository interface {
	Create(agent *models.Agent) error
	GetByID(agentID string) (*models.Agent, error)
	GetByEmail(email string) (*models.Agent, error)
	List() ([]*models.Agent, error)
	UpdateProfile(agentID, name, avatar string, specialization []string) error
	UpdateStatus(agentID, status string, isAccepting bool) error
	IncrementTotalChats(agentID string) error
}

// AgentSQLRepository stores agents in the agents and agent_specializations
// tables.
type AgentSQLRepository struct {
	db *sqlx.DB
}

// NewAgentRepository creates a new SQL-backed agent repository.
func NewAgentRepository(db *sqlx.DB) *AgentSQLRepository {
	return &AgentSQLRepository{db: db}
}

// Create stores a new agent with its specialization set.
func (r *AgentSQLRepository) Create(agent *models.Agent) error {
	if agent.ID == "" {
		return errors.New("agent ID is required")
	}

	var count int
	err := r.db.Get(&count, r.db.Rebind(`SELECT COUNT(*) FROM agents WHERE email = ?`), agent.Email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(r.db.Rebind(`
		INSERT INTO agents (id, name, email, password_hash, avatar, status,
			max_active_sessions, is_accepting, rating, total_chats, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		agent.ID, agent.Name, agent.Email, agent.PasswordHash, agent.Avatar, agent.Status,
		agent.MaxActiveSessions, agent.IsAccepting, agent.Rating, agent.TotalChats,
		agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}

	if err = insertSpecializations(tx, r.db, agent.ID, agent.Specialization); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by its ID.
func (r *AgentSQLRepository) GetByID(agentID string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := r.db.Get(agent, r.db.Rebind(`SELECT * FROM agents WHERE id = ?`), agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query agent: %w", err)
	}
	if err := r.loadSpecializations(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// GetByEmail retrieves an agent by login email.
func (r *AgentSQLRepository) GetByEmail(email string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := r.db.Get(agent, r.db.Rebind(`SELECT * FROM agents WHERE email = ?`), strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query agent: %w", err)
	}
	if err := r.loadSpecializations(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// List returns all agents ordered by name.
func (r *AgentSQLRepository) List() ([]*models.Agent, error) {
	agents := []*models.Agent{}
	if err := r.db.Select(&agents, `SELECT * FROM agents ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	for _, a := range agents {
		if err := r.loadSpecializations(a); err != nil {
			return nil, err
		}
	}
	return agents, nil
}

// UpdateProfile updates name, avatar and specializations. Empty name or
// avatar leaves the stored value untouched; a nil specialization slice
// leaves the set untouched.
func (r *AgentSQLRepository) UpdateProfile(agentID, name, avatar string, specialization []string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if name != "" {
		if err = execUpdate(tx, r.db, `UPDATE agents SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now().UTC(), agentID); err != nil {
			return err
		}
	}
	if avatar != "" {
		if err = execUpdate(tx, r.db, `UPDATE agents SET avatar = ?, updated_at = ? WHERE id = ?`, avatar, time.Now().UTC(), agentID); err != nil {
			return err
		}
	}
	if specialization != nil {
		if _, err = tx.Exec(r.db.Rebind(`DELETE FROM agent_specializations WHERE agent_id = ?`), agentID); err != nil {
			return fmt.Errorf("failed to clear specializations: %w", err)
		}
		if err = insertSpecializations(tx, r.db, agentID, specialization); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateStatus sets the agent's availability status and accepting flag.
func (r *AgentSQLRepository) UpdateStatus(agentID, status string, isAccepting bool) error {
	res, err := r.db.Exec(r.db.Rebind(`
		UPDATE agents SET status = ?, is_accepting = ?, updated_at = ? WHERE id = ?`),
		status, isAccepting, time.Now().UTC(), agentID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTotalChats bumps the lifetime chat counter.
func (r *AgentSQLRepository) IncrementTotalChats(agentID string) error {
	_, err := r.db.Exec(r.db.Rebind(`
		UPDATE agents SET total_chats = total_chats + 1, updated_at = ? WHERE id = ?`),
		time.Now().UTC(), agentID)
	if err != nil {
		return fmt.Errorf("failed to increment total chats: %w", err)
	}
	return nil
}

func (r *AgentSQLRepository) loadSpecializations(agent *models.Agent) error {
	topics := []string{}
	err := r.db.Select(&topics, r.db.Rebind(`
		SELECT topic FROM agent_specializations WHERE agent_id = ? ORDER BY topic`), agent.ID)
	if err != nil {
		return fmt.Errorf("failed to load specializations: %w", err)
	}
	agent.Specialization = topics
	return nil
}

func insertSpecializations(tx *sqlx.Tx, db *sqlx.DB, agentID string, topics []string) error {
	for _, topic := range topics {
		if _, err := tx.Exec(db.Rebind(`
			INSERT INTO agent_specializations (agent_id, topic) VALUES (?, ?)`), agentID, topic); err != nil {
			return fmt.Errorf("failed to insert specialization %s: %w", topic, err)
		}
	}
	return nil
}

func execUpdate(tx *sqlx.Tx, db *sqlx.DB, query string, args ...interface{}) error {
	if _, err := tx.Exec(db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/transitdesk/transitdesk/internal/models"
)

// ChatRepository defines the interface for chat session persistence.
// The message log is append-only; sessions are never deleted, only closed.
type ChatRepository interface {
	CreateSession(session *models.ChatSession) error
	GetSession(sessionID string) (*models.ChatSession, error)
	ListByUser(userID string) ([]*models.ChatSession, error)
	ListByAgent(agentID string) ([]*models.ChatSession, error)
	AppendMessage(sessionID string, msg *models.Message) error
	MarkRead(sessionID, readerID string) error
	// CloseSession marks the session closed. It reports whether this call
	// performed the active->closed transition, so callers release agent
	// capacity exactly once.
	CloseSession(sessionID string) (bool, error)
	ListIdleActive(olderThan time.Time) ([]*models.ChatSession, error)
	CountActiveByAgent() (map[string][]string, error)
}

// ChatSQLRepository stores sessions and messages in the chat_sessions and
// chat_messages tables.
type ChatSQLRepository struct {
	db *sqlx.DB
}

// NewChatRepository creates a new SQL-backed chat repository.
func NewChatRepository(db *sqlx.DB) *ChatSQLRepository {
	return &ChatSQLRepository{db: db}
}

// CreateSession stores a new session row.
func (r *ChatSQLRepository) CreateSession(session *models.ChatSession) error {
	if session.ID == "" {
		return errors.New("session ID is required")
	}
	_, err := r.db.Exec(r.db.Rebind(`
		INSERT INTO chat_sessions (id, user_id, agent_id, topic, status, last_activity_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		session.ID, session.UserID, session.AgentID, session.Topic, session.Status,
		session.LastActivityAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session with its full message log.
func (r *ChatSQLRepository) GetSession(sessionID string) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	err := r.db.Get(session, r.db.Rebind(`SELECT * FROM chat_sessions WHERE id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if err := r.loadMessages(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListByUser returns a requester's sessions, newest activity first.
func (r *ChatSQLRepository) ListByUser(userID string) ([]*models.ChatSession, error) {
	return r.list(`SELECT * FROM chat_sessions WHERE user_id = ? ORDER BY last_activity_at DESC`, userID)
}

// ListByAgent returns an agent's sessions, newest activity first.
func (r *ChatSQLRepository) ListByAgent(agentID string) ([]*models.ChatSession, error) {
	return r.list(`SELECT * FROM chat_sessions WHERE agent_id = ? ORDER BY last_activity_at DESC`, agentID)
}

func (r *ChatSQLRepository) list(query string, arg interface{}) ([]*models.ChatSession, error) {
	sessions := []*models.ChatSession{}
	if err := r.db.Select(&sessions, r.db.Rebind(query), arg); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, s := range sessions {
		if err := r.loadMessages(s); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// AppendMessage inserts the message and bumps last_activity_at in one
// transaction. The caller assigns the server-side timestamp.
func (r *ChatSQLRepository) AppendMessage(sessionID string, msg *models.Message) error {
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
		INSERT INTO chat_messages (id, session_id, sender, sender_id, content, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		msg.ID, sessionID, msg.Sender, msg.SenderID, msg.Content, msg.Timestamp, msg.IsRead)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.Exec(r.db.Rebind(`
		UPDATE chat_sessions SET last_activity_at = ? WHERE id = ?`),
		msg.Timestamp, sessionID)
	if err != nil {
		return fmt.Errorf("failed to bump session activity: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkRead flips is_read on every message in the session not sent by the
// reader. Re-marking already-read messages is a no-op.
func (r *ChatSQLRepository) MarkRead(sessionID, readerID string) error {
	_, err := r.db.Exec(r.db.Rebind(`
		UPDATE chat_messages SET is_read = ? WHERE session_id = ? AND sender_id <> ?`),
		true, sessionID, readerID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// CloseSession performs a conditional update so only one caller ever
// observes the active->closed transition.
func (r *ChatSQLRepository) CloseSession(sessionID string) (bool, error) {
	res, err := r.db.Exec(r.db.Rebind(`
		UPDATE chat_sessions SET status = ? WHERE id = ? AND status = ?`),
		models.SessionStatusClosed, sessionID, models.SessionStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ListIdleActive returns active sessions whose last activity is before the
// cutoff. Messages are not loaded; the cleanup task only needs identities.
func (r *ChatSQLRepository) ListIdleActive(olderThan time.Time) ([]*models.ChatSession, error) {
	sessions := []*models.ChatSession{}
	err := r.db.Select(&sessions, r.db.Rebind(`
		SELECT * FROM chat_sessions WHERE status = ? AND last_activity_at < ?`),
		models.SessionStatusActive, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	return sessions, nil
}

// CountActiveByAgent returns the active session IDs per agent, used to seed
// the in-memory registry at startup.
func (r *ChatSQLRepository) CountActiveByAgent() (map[string][]string, error) {
	rows, err := r.db.Query(r.db.Rebind(`
		SELECT agent_id, id FROM chat_sessions WHERE status = ?`), models.SessionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var agentID, sessionID string
		if err := rows.Scan(&agentID, &sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[agentID] = append(result[agentID], sessionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *ChatSQLRepository) loadMessages(session *models.ChatSession) error {
	msgs := []models.Message{}
	err := r.db.Select(&msgs, r.db.Rebind(`
		SELECT * FROM chat_messages WHERE session_id = ? ORDER BY created_at, id`), session.ID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	session.Messages = msgs
	return nil
}

package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema statements use portable SQL. TEXT primary keys hold UUIDs;
// specializations live in a join-style table so topic lookups stay simple.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'offline',
		max_active_sessions INTEGER NOT NULL DEFAULT 5,
		is_accepting BOOLEAN NOT NULL DEFAULT TRUE,
		rating REAL NOT NULL DEFAULT 0,
		total_chats INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agent_specializations (
		agent_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		PRIMARY KEY (agent_id, topic)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT 'general',
		status TEXT NOT NULL DEFAULT 'active',
		last_activity_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON chat_sessions (user_id, last_activity_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_agent ON chat_sessions (agent_id, last_activity_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages (session_id, created_at)`,
}

// EnsureSchema creates the chat tables if they do not exist.
func EnsureSchema(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

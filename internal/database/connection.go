// Package database manages the SQL connection and schema for the chat
// service. Supported drivers: sqlite3, mysql, postgres.
package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/transitdesk/transitdesk/internal/config"
)

// Connect opens a connection pool for the configured driver and verifies
// it with a ping.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Connect(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// Serialize writers; sqlite locks the whole file anyway.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS player_sessions (
			player_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			muted_until INTEGER NOT NULL DEFAULT 0,
			first_seen INTEGER NOT NULL DEFAULT 0,
			last_seen INTEGER NOT NULL DEFAULT 0,
			join_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS moderation_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			player_name TEXT NOT NULL,
			category TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_log_player ON moderation_log(player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_log_created ON moderation_log(created_at)`,
	},
}

// NewSQLiteStore opens or creates a SQLite store at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration, logBuffer int) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLStore(db, sqliteDialect, logger, retention, cleanupFreq, logBuffer)
}

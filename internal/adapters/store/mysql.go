package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS player_sessions (
			player_id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			muted_until BIGINT NOT NULL DEFAULT 0,
			first_seen BIGINT NOT NULL DEFAULT 0,
			last_seen BIGINT NOT NULL DEFAULT 0,
			join_count INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS moderation_log (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL,
			player_name VARCHAR(64) NOT NULL,
			category VARCHAR(16) NOT NULL,
			payload TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_moderation_log_player (player_id),
			INDEX idx_moderation_log_created (created_at)
		)`,
	},
}

// NewMySQLStore connects to a MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration, logBuffer int) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(db, mysqlDialect, logger, retention, cleanupFreq, logBuffer)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name   string
	schema []string
}

// SQLStore is a database/sql backed store shared by the SQLite and MySQL adapters
type SQLStore struct {
	*recorder

	db        *sql.DB
	dialect   dialect
	retention time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, retention, cleanupFreq time.Duration, logBuffer int) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &SQLStore{
		db:        db,
		dialect:   d,
		retention: retention,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
	s.recorder = newRecorder(s, logBuffer, logger)

	go startCleanupTask(s, cleanupFreq, s.stopCh, logger)
	return s, nil
}

// Load retrieves the session data of a player, nil when the player is unknown
func (s *SQLStore) Load(ctx context.Context, id core.PlayerID) (*core.SessionData, error) {
	defer s.observe("load", time.Now())

	var data core.SessionData
	var mutedUntil, firstSeen, lastSeen int64
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, name, muted_until, first_seen, last_seen, join_count
		FROM player_sessions
		WHERE player_id = ?
	`, string(id)).Scan(&data.PlayerID, &data.Name, &mutedUntil, &firstSeen, &lastSeen, &data.JoinCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session data: %w", err)
	}

	data.MutedUntil = fromMillis(mutedUntil)
	data.FirstSeen = fromMillis(firstSeen)
	data.LastSeen = fromMillis(lastSeen)
	return &data, nil
}

// Save stores the session data of a player
func (s *SQLStore) Save(ctx context.Context, data *core.SessionData) error {
	defer s.observe("save", time.Now())

	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO player_sessions (player_id, name, muted_until, first_seen, last_seen, join_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(data.PlayerID), data.Name, toMillis(data.MutedUntil), toMillis(data.FirstSeen), toMillis(data.LastSeen), data.JoinCount)
	if err != nil {
		return fmt.Errorf("failed to save session data: %w", err)
	}
	return nil
}

func (s *SQLStore) appendLog(ctx context.Context, entries []LogEntry) error {
	defer s.observe("append_log", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO moderation_log (player_id, player_name, category, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare log insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode log payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(e.PlayerID), e.PlayerName, string(e.Category), string(payload), toMillis(e.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entries: %w", err)
	}
	return nil
}

// Entries returns the newest log entries of a player
func (s *SQLStore) Entries(ctx context.Context, id core.PlayerID, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, player_id, player_name, category, payload, created_at
		FROM moderation_log`
	args := []interface{}{}
	if id != "" {
		query += ` WHERE player_id = ?`
		args = append(args, string(id))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e         LogEntry
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.PlayerName, &e.Category, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode log payload: %w", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup removes log entries older than the retention
func (s *SQLStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := toMillis(time.Now().Add(-s.retention))

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM moderation_log
		WHERE created_at <= ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up moderation log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up moderation log", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop flushes the moderation log, stops the cleanup task and closes the database
func (s *SQLStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.recorder.close()
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.String("backend", s.dialect.name), zap.Error(err))
		}
	})
}

func (s *SQLStore) observe(op string, start time.Time) {
	storeOpDuration.WithLabelValues(s.dialect.name, op).Observe(time.Since(start).Seconds())
}

// Timestamps are stored as unix milliseconds, zero meaning unset
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// MemoryStore keeps session data and the moderation log in memory
type MemoryStore struct {
	*recorder

	mu        sync.RWMutex
	sessions  map[core.PlayerID]core.SessionData
	log       []LogEntry
	nextID    int64
	retention time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration, logBuffer int) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[core.PlayerID]core.SessionData),
		retention: retention,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
	s.recorder = newRecorder(s, logBuffer, logger)

	go startCleanupTask(s, cleanupFreq, s.stopCh, logger)
	return s
}

// Load returns a copy of the stored data, nil when the player is unknown
func (s *MemoryStore) Load(_ context.Context, id core.PlayerID) (*core.SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &data, nil
}

// Save stores a copy of data
func (s *MemoryStore) Save(_ context.Context, data *core.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[data.PlayerID] = *data
	return nil
}

func (s *MemoryStore) appendLog(_ context.Context, entries []LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.nextID++
		e.ID = s.nextID
		s.log = append(s.log, e)
	}
	return nil
}

// Entries returns the newest log entries of a player
func (s *MemoryStore) Entries(_ context.Context, id core.PlayerID, limit int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LogEntry
	for i := len(s.log) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if id == "" || s.log[i].PlayerID == id {
			out = append(out, s.log[i])
		}
	}
	return out, nil
}

// Cleanup removes log entries older than the retention
func (s *MemoryStore) Cleanup(_ context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.log[:0]
	for _, e := range s.log {
		if e.CreatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	expired := len(s.log) - len(kept)
	s.log = kept

	s.logger.Debug("Cleaned up moderation log", zap.Int("expired_count", expired))
	return nil
}

// Stop flushes the moderation log and stops the cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.recorder.close()
	})
}

// Package store persists session data and the moderation log.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// DefaultLogBuffer is the number of log entries queued before Record drops them
const DefaultLogBuffer = 256

// LogEntry is one recorded moderation payload
type LogEntry struct {
	ID         int64
	PlayerID   core.PlayerID
	PlayerName string
	Category   core.Category
	Payload    []string
	CreatedAt  time.Time
}

// Store is a session store that also keeps the moderation log
type Store interface {
	core.SessionStore
	core.LogSink

	// Entries returns the newest log entries of a player, newest first. An
	// empty id returns entries of every player.
	Entries(ctx context.Context, id core.PlayerID, limit int) ([]LogEntry, error)

	// Cleanup removes log entries older than the retention
	Cleanup(ctx context.Context) error

	// Stop flushes queued log entries and releases the store
	Stop()
}

// appender writes a batch of log entries to a backend
type appender interface {
	appendLog(ctx context.Context, entries []LogEntry) error
}

// recorder is the LogSink shared by all stores. Record is called from the
// dispatch thread, so entries are handed to a writer goroutine.
type recorder struct {
	mu      sync.RWMutex
	closed  bool
	entries chan LogEntry
	done    chan struct{}
	out     appender
	logger  *zap.Logger
	now     func() time.Time
}

func newRecorder(out appender, size int, logger *zap.Logger) *recorder {
	if size <= 0 {
		size = DefaultLogBuffer
	}
	r := &recorder{
		entries: make(chan LogEntry, size),
		done:    make(chan struct{}),
		out:     out,
		logger:  logger,
		now:     time.Now,
	}
	go r.run()
	return r
}

// Record queues payload without blocking. Entries are dropped when the
// writer falls behind.
func (r *recorder) Record(category core.Category, mctx *core.Context, payload []string) {
	entry := LogEntry{
		Category:  category,
		Payload:   append([]string(nil), payload...),
		CreatedAt: r.now(),
	}
	if mctx != nil && mctx.Author != nil {
		entry.PlayerID = mctx.Author.ID()
		entry.PlayerName = mctx.Author.Name()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.entries <- entry:
	default:
		logDropCount.Inc()
		r.logger.Warn("Moderation log buffer full, dropping entry",
			zap.String("player", entry.PlayerName),
			zap.String("category", string(category)))
	}
}

func (r *recorder) run() {
	defer close(r.done)

	for entry := range r.entries {
		// Drain what is already queued into one batch
		batch := []LogEntry{entry}
	drain:
		for {
			select {
			case next, ok := <-r.entries:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.out.appendLog(ctx, batch); err != nil {
			r.logger.Error("Failed to write moderation log", zap.Int("entries", len(batch)), zap.Error(err))
		}
		cancel()
	}
}

// close stops accepting entries and waits for queued ones to be written
func (r *recorder) close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()
	<-r.done
}

// startCleanupTask periodically removes expired log entries until stopCh closes
func startCleanupTask(s Store, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	if freq <= 0 {
		return
	}
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up moderation log", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}

package session

import (
	"context"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// LoadTask is the cancellable handle of an in-flight session load. Its
// continuation keeps only a back-reference to the cache and re-validates it
// before mutating anything.
type LoadTask struct {
	cache   *Cache
	cancel  context.CancelFunc
	onReady func(*Cache)
	alive   func(*Cache) bool
	started time.Time

	cancelled bool
	completed bool
	err       error
}

// Cancel cancels the load. A completion arriving afterwards is ignored.
func (t *LoadTask) Cancel() {
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.cancel()
}

// Cancelled reports whether the task was cancelled
func (t *LoadTask) Cancelled() bool {
	return t.cancelled
}

// Completed reports whether the task applied its data to the cache
func (t *LoadTask) Completed() bool {
	return t.completed
}

// Err returns the load error, if the loader failed
func (t *LoadTask) Err() error {
	return t.err
}

// Started returns when the load was started
func (t *LoadTask) Started() time.Time {
	return t.started
}

// finish runs on the dispatch thread once the loader returned
func (t *LoadTask) finish(data *core.SessionData, err error) {
	c := t.cache
	if t.cancelled {
		c.logger.Debug("Ignoring completion of cancelled session load", zap.String("player", string(c.id)))
		return
	}
	if t.alive != nil && !t.alive(c) {
		c.logger.Debug("Ignoring completion for evicted session", zap.String("player", string(c.id)))
		return
	}

	if err != nil {
		t.err = err
		c.fail(t)
		c.logger.Error("Failed to load session data",
			zap.String("player", string(c.id)),
			zap.Duration("elapsed", time.Since(t.started)),
			zap.Error(err))
		return
	}

	if !c.complete(t, data) {
		return
	}
	t.completed = true
	t.cancel()

	c.logger.Debug("Session data loaded",
		zap.String("player", string(c.id)),
		zap.Duration("elapsed", time.Since(t.started)))

	if t.onReady != nil {
		t.onReady(c)
	}
}

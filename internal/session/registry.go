package session

import (
	"sync"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// Registry is the in-memory index of session caches keyed by player id
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.PlayerID]*Cache
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[core.PlayerID]*Cache),
		logger:   logger,
	}
}

// Get returns the cache for id, creating it when missing
func (r *Registry) Get(id core.PlayerID) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.sessions[id]
	if !ok {
		c = NewCache(id, r.logger)
		r.sessions[id] = c
	}
	return c
}

// Lookup returns the cache for id without creating it
func (r *Registry) Lookup(id core.PlayerID) (*Cache, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.sessions[id]
	return c, ok
}

// Remove evicts the cache for id and cancels its pending load
func (r *Registry) Remove(id core.PlayerID) {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		c.CancelPendingLoad()
	}
}

// Len returns the number of indexed sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// BeginLoad starts loading c. The completion is dropped when c has been
// evicted or replaced in the meantime.
func (r *Registry) BeginLoad(c *Cache, loader core.SessionLoader, sched core.Scheduler, onReady func(*Cache)) *LoadTask {
	return c.beginLoad(loader, sched, onReady, r.owns)
}

func (r *Registry) owns(c *Cache) bool {
	current, ok := r.Lookup(c.id)
	return ok && current == c
}

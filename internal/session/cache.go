// Package session holds the per-connection moderation state and guards its
// asynchronous load against disconnect races.
package session

import (
	"context"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// SignSlots is the number of lines tracked for duplicate sign detection
const SignSlots = 4

// Cache is the mutable state of one connection. All methods must be called
// from the dispatch thread.
type Cache struct {
	id     core.PlayerID
	logger *zap.Logger

	loaded   bool
	loadTask *LoadTask
	data     *core.SessionData

	LastLoginAt              time.Time
	JoinLocation             core.Location
	MovedFromJoin            bool
	FloodActive              bool
	PendingRemoteJoinMessage bool
	DeferredLoad             bool
	DeferredJoinMessage      string

	lastSignText []string
	pendingMail  string
}

// NewCache creates an empty, not yet loaded session cache
func NewCache(id core.PlayerID, logger *zap.Logger) *Cache {
	return &Cache{
		id:     id,
		logger: logger,
	}
}

// ID returns the player id the cache belongs to
func (c *Cache) ID() core.PlayerID {
	return c.id
}

// IsReady reports whether persisted data has been loaded and merged
func (c *Cache) IsReady() bool {
	return c.loaded
}

// Data returns the loaded session data, nil while not ready
func (c *Cache) Data() *core.SessionData {
	return c.data
}

// Loading reports whether a load task is in flight
func (c *Cache) Loading() bool {
	return c.loadTask != nil
}

// PendingLoad returns the load task in flight, nil when none
func (c *Cache) PendingLoad() *LoadTask {
	return c.loadTask
}

// BeginLoad starts loading persisted data with loader. The load runs through
// sched.RunAsync and its completion is scheduled back with sched.Run, where
// onReady is invoked once the data is applied. Returns nil when already
// loaded, or the task already in flight.
func (c *Cache) BeginLoad(loader core.SessionLoader, sched core.Scheduler, onReady func(*Cache)) *LoadTask {
	return c.beginLoad(loader, sched, onReady, nil)
}

func (c *Cache) beginLoad(loader core.SessionLoader, sched core.Scheduler, onReady func(*Cache), alive func(*Cache) bool) *LoadTask {
	if c.loaded {
		return nil
	}
	if c.loadTask != nil {
		return c.loadTask
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &LoadTask{
		cache:   c,
		cancel:  cancel,
		onReady: onReady,
		alive:   alive,
		started: time.Now(),
	}
	c.loadTask = task

	sched.RunAsync(func() {
		data, err := loader.Load(ctx, c.id)
		sched.Run(func() {
			task.finish(data, err)
		})
	})

	return task
}

// complete applies data if task is still the current load of this cache
func (c *Cache) complete(task *LoadTask, data *core.SessionData) bool {
	if task.cancelled || c.loadTask != task {
		return false
	}
	if data == nil {
		data = &core.SessionData{PlayerID: c.id}
	}

	c.data = data
	c.loaded = true
	c.loadTask = nil
	return true
}

// fail clears a failed load task. The cache stays not ready.
func (c *Cache) fail(task *LoadTask) {
	if c.loadTask == task {
		c.loadTask = nil
	}
}

// CancelPendingLoad cancels the in-flight load, if any. Safe to call repeatedly.
func (c *Cache) CancelPendingLoad() bool {
	task := c.loadTask
	if task == nil {
		return false
	}
	c.loadTask = nil
	task.Cancel()
	return true
}

// Reset marks the cache as not loaded and drops the loaded data, used when the
// connection leaves while the cache itself is kept.
func (c *Cache) Reset() {
	c.CancelPendingLoad()
	c.loaded = false
	c.data = nil
	c.PendingRemoteJoinMessage = false
	c.FloodActive = false
	c.DeferredLoad = false
	c.DeferredJoinMessage = ""
}

// LastSignText returns the previously submitted sign lines
func (c *Cache) LastSignText() []string {
	return c.lastSignText
}

// SetLastSignText stores a copy of lines as the previous sign submission
func (c *Cache) SetLastSignText(lines []string) {
	c.lastSignText = append([]string(nil), lines...)
}

// IsDuplicateSign reports whether lines equal the previous submission slot by slot
func (c *Cache) IsDuplicateSign(lines []string) bool {
	if len(c.lastSignText) != len(lines) {
		return false
	}
	for i := range lines {
		if lines[i] != c.lastSignText[i] {
			return false
		}
	}
	return true
}

// PendingMail returns the reference of the mail draft being written
func (c *Cache) PendingMail() string {
	return c.pendingMail
}

// SetPendingMail stores or clears (empty) the mail draft reference
func (c *Cache) SetPendingMail(ref string) {
	c.pendingMail = ref
}

package dispatch

import (
	"sort"
	"sync"
)

type delayed struct {
	due  int
	seq  int
	task func()
}

// Manual is a deterministic Scheduler driven explicitly by the caller.
// Async tasks are held until Drain so tests can interleave events with
// in-flight loads.
type Manual struct {
	mu      sync.Mutex
	now     int
	seq     int
	queue   []func()
	async   []func()
	delayed []delayed
}

// NewManual creates a new manual scheduler
func NewManual() *Manual {
	return &Manual{}
}

// Run queues task
func (m *Manual) Run(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, task)
}

// RunLater queues task after ticks calls to Advance
func (m *Manual) RunLater(ticks int, task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.delayed = append(m.delayed, delayed{due: m.now + ticks, seq: m.seq, task: task})
}

// RunAsync holds task until the next Drain
func (m *Manual) RunAsync(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.async = append(m.async, task)
}

// PendingAsync returns the number of async tasks not yet run
func (m *Manual) PendingAsync() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.async)
}

// PendingDelayed returns the number of delayed tasks not yet due
func (m *Manual) PendingDelayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delayed)
}

// Drain runs async tasks and then queued tasks until nothing is left
func (m *Manual) Drain() {
	for {
		m.mu.Lock()
		var task func()
		switch {
		case len(m.async) > 0:
			task = m.async[0]
			m.async = m.async[1:]
		case len(m.queue) > 0:
			task = m.queue[0]
			m.queue = m.queue[1:]
		}
		m.mu.Unlock()

		if task == nil {
			return
		}
		task()
	}
}

// Advance moves time forward, queues delayed tasks that became due and drains
func (m *Manual) Advance(ticks int) {
	m.mu.Lock()
	m.now += ticks
	var due []delayed
	remaining := m.delayed[:0]
	for _, d := range m.delayed {
		if d.due <= m.now {
			due = append(due, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	m.delayed = remaining
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, d := range due {
		m.queue = append(m.queue, d.task)
	}
	m.mu.Unlock()

	m.Drain()
}

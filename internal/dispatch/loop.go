// Package dispatch provides the single event dispatch thread the moderation
// core runs on.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Call once the loop has been stopped
var ErrStopped = errors.New("dispatch loop stopped")

// DefaultTick is the duration of one dispatch tick
const DefaultTick = 50 * time.Millisecond

// Loop runs queued tasks one at a time on its own goroutine
type Loop struct {
	tasks  chan func()
	tick   time.Duration
	logger *zap.Logger
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once

	started atomic.Bool
}

// NewLoop creates a new dispatch loop
func NewLoop(logger *zap.Logger, tick time.Duration, queueSize int) *Loop {
	if tick <= 0 {
		tick = DefaultTick
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		tick:   tick,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start starts the dispatch goroutine
func (l *Loop) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case task := <-l.tasks:
			l.execute(task)
		case <-l.stopCh:
			return
		}
	}
}

// execute runs one task, recovering panics so a bad handler cannot kill the loop
func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Dispatch task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Run queues task on the dispatch thread
func (l *Loop) Run(task func()) {
	select {
	case l.tasks <- task:
	case <-l.stopCh:
		l.logger.Debug("Dropping task queued after stop")
	}
}

// RunLater queues task after ticks dispatch ticks
func (l *Loop) RunLater(ticks int, task func()) {
	if ticks <= 0 {
		l.Run(task)
		return
	}
	time.AfterFunc(time.Duration(ticks)*l.tick, func() {
		l.Run(task)
	})
}

// RunAsync runs task on a new goroutine
func (l *Loop) RunAsync(task func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("Async task panicked", zap.Any("panic", r))
			}
		}()
		task()
	}()
}

// Call runs task on the dispatch thread and waits for it to finish
func (l *Loop) Call(task func()) error {
	finished := make(chan struct{})
	select {
	case l.tasks <- func() {
		defer close(finished)
		task()
	}:
	case <-l.stopCh:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Stop stops the dispatch goroutine. Queued tasks that have not started are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() {
		close(l.stopCh)
	})
	if l.started.Load() {
		<-l.done
	}
}

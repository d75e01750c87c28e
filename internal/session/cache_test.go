package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLoader struct {
	data  map[core.PlayerID]*core.SessionData
	err   error
	calls int
	ctxs  []context.Context
}

func (l *stubLoader) Load(ctx context.Context, id core.PlayerID) (*core.SessionData, error) {
	l.calls++
	l.ctxs = append(l.ctxs, ctx)
	if l.err != nil {
		return nil, l.err
	}
	if d, ok := l.data[id]; ok {
		return d, nil
	}
	return &core.SessionData{PlayerID: id}, nil
}

func TestBeginLoadCompletesOnDispatch(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{data: map[core.PlayerID]*core.SessionData{
		"p1": {PlayerID: "p1", Name: "Steve", JoinCount: 3},
	}}
	c := NewCache("p1", zap.NewNop())

	readyCalls := 0
	task := c.BeginLoad(loader, sched, func(*Cache) { readyCalls++ })
	require.NotNil(t, task)
	assert.False(t, c.IsReady())
	assert.True(t, c.Loading())

	sched.Drain()

	assert.True(t, c.IsReady())
	assert.False(t, c.Loading())
	assert.True(t, task.Completed())
	assert.Equal(t, 3, c.Data().JoinCount)
	assert.Equal(t, 1, readyCalls)
}

func TestBeginLoadIsNoopWhenLoadedOrLoading(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{}
	c := NewCache("p1", zap.NewNop())

	first := c.BeginLoad(loader, sched, nil)
	second := c.BeginLoad(loader, sched, nil)
	assert.Same(t, first, second)
	assert.Equal(t, 1, sched.PendingAsync())

	sched.Drain()
	assert.Nil(t, c.BeginLoad(loader, sched, nil))
	assert.Equal(t, 1, loader.calls)
}

func TestCancelBeforeCompletionIgnoresLateResult(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{}
	c := NewCache("p1", zap.NewNop())

	readyCalls := 0
	task := c.BeginLoad(loader, sched, func(*Cache) { readyCalls++ })

	assert.True(t, c.CancelPendingLoad())
	assert.False(t, c.CancelPendingLoad())
	assert.True(t, task.Cancelled())

	sched.Drain()

	assert.False(t, c.IsReady())
	assert.False(t, c.Loading())
	assert.Nil(t, c.Data())
	assert.Zero(t, readyCalls)
	require.Len(t, loader.ctxs, 1)
	assert.ErrorIs(t, loader.ctxs[0].Err(), context.Canceled)
}

func TestLateCompletionDoesNotTouchReusedSlot(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{}
	reg := NewRegistry(zap.NewNop())

	old := reg.Get("p1")
	oldTask := reg.BeginLoad(old, loader, sched, nil)

	// disconnect, then the same player reconnects before the old load returns
	reg.Remove("p1")
	fresh := reg.Get("p1")
	require.NotSame(t, old, fresh)
	assert.True(t, oldTask.Cancelled())

	sched.Drain()

	assert.False(t, old.IsReady())
	assert.False(t, fresh.IsReady())
	assert.False(t, fresh.Loading())
	assert.False(t, oldTask.Completed())
}

func TestCompletionForEvictedCacheIsDropped(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{}
	reg := NewRegistry(zap.NewNop())

	c := reg.Get("p1")
	task := reg.BeginLoad(c, loader, sched, nil)

	// evicted without cancelling the task through the cache
	reg.mu.Lock()
	delete(reg.sessions, "p1")
	reg.mu.Unlock()

	sched.Drain()

	assert.False(t, task.Completed())
	assert.False(t, c.IsReady())
}

func TestLoadFailureLeavesSessionNotReady(t *testing.T) {
	sched := dispatch.NewManual()
	loader := &stubLoader{err: errors.New("connection refused")}
	c := NewCache("p1", zap.NewNop())

	task := c.BeginLoad(loader, sched, func(*Cache) { t.Fatal("onReady must not run") })
	sched.Drain()

	assert.False(t, c.IsReady())
	assert.False(t, c.Loading())
	assert.EqualError(t, task.Err(), "connection refused")
}

func TestResetDropsDataAndFlags(t *testing.T) {
	sched := dispatch.NewManual()
	c := NewCache("p1", zap.NewNop())
	c.BeginLoad(&stubLoader{}, sched, nil)
	sched.Drain()
	c.FloodActive = true
	c.PendingRemoteJoinMessage = true
	c.LastLoginAt = time.Now()

	c.Reset()

	assert.False(t, c.IsReady())
	assert.Nil(t, c.Data())
	assert.False(t, c.FloodActive)
	assert.False(t, c.PendingRemoteJoinMessage)
}

func TestDuplicateSignWindow(t *testing.T) {
	c := NewCache("p1", zap.NewNop())
	lines := []string{"a", "b", "", ""}

	assert.False(t, c.IsDuplicateSign(lines))
	c.SetLastSignText(lines)
	lines[0] = "changed"
	assert.False(t, c.IsDuplicateSign(lines))
	assert.True(t, c.IsDuplicateSign([]string{"a", "b", "", ""}))
	assert.False(t, c.IsDuplicateSign([]string{"a", "b", ""}))
}

func TestRegistryRemoveCancelsLoad(t *testing.T) {
	sched := dispatch.NewManual()
	reg := NewRegistry(zap.NewNop())
	c := reg.Get("p1")
	task := reg.BeginLoad(c, &stubLoader{}, sched, nil)

	reg.Remove("p1")
	reg.Remove("p1")

	assert.True(t, task.Cancelled())
	assert.Zero(t, reg.Len())
	_, ok := reg.Lookup("p1")
	assert.False(t, ok)
}

type blockingLoader struct{}

func (blockingLoader) Load(ctx context.Context, _ core.PlayerID) (*core.SessionData, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimeoutLoaderCancelsSlowLoads(t *testing.T) {
	l := TimeoutLoader{Loader: blockingLoader{}, Timeout: 10 * time.Millisecond}
	_, err := l.Load(context.Background(), "uuid-steve")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

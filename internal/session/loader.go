package session

import (
	"context"
	"time"

	"github.com/mikey/chatguard/internal/core"
)

// TimeoutLoader bounds every load of the wrapped loader
type TimeoutLoader struct {
	Loader  core.SessionLoader
	Timeout time.Duration
}

// Load calls the wrapped loader, cancelling it after Timeout
func (l TimeoutLoader) Load(ctx context.Context, id core.PlayerID) (*core.SessionData, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	return l.Loader.Load(ctx, id)
}

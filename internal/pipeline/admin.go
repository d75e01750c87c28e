package pipeline

import (
	"context"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// SetServerMuted toggles the mute of the whole server
func (m *Moderator) SetServerMuted(muted bool) {
	m.gate.SetServerMuted(muted)
	m.logger.Info("Server mute changed", zap.Bool("muted", muted))
}

// MutePlayer mutes a player until the given time, a zero time unmutes. Loaded
// sessions are updated in place. Otherwise the mute is kept until the next
// load of the player completes, and written to the store off the dispatch
// thread for players that never come back.
func (m *Moderator) MutePlayer(id core.PlayerID, until time.Time) bool {
	if c, ok := m.sessions.Lookup(id); ok && c.IsReady() {
		data := c.Data()
		data.MutedUntil = until
		delete(m.pendingMutes, id)
		m.save(data)
		m.logger.Info("Player mute changed", zap.String("player", string(id)), zap.Time("until", until))
		return true
	}

	m.pendingMutes[id] = until
	if m.store == nil {
		return true
	}
	m.sched.RunAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, err := m.store.Load(ctx, id)
		if err != nil {
			m.logger.Error("Failed to load session data for mute", zap.String("player", string(id)), zap.Error(err))
			return
		}
		if data == nil {
			data = &core.SessionData{PlayerID: id}
		}
		data.MutedUntil = until
		if err := m.store.Save(ctx, data); err != nil {
			m.logger.Error("Failed to save session data for mute", zap.String("player", string(id)), zap.Error(err))
		}
	})
	m.logger.Info("Offline player mute changed", zap.String("player", string(id)), zap.Time("until", until))
	return true
}

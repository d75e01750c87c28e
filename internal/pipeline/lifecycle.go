package pipeline

import (
	"strings"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/session"
	"go.uber.org/zap"
)

// PreLogin rejects players whose name matches a disallowed pattern, running
// the configured console commands for them first.
func (m *Moderator) PreLogin(ev PreLoginEvent) LoginResult {
	if !m.disallowedName(ev.Name) {
		return LoginResult{Allowed: true}
	}
	if m.perms != nil && m.perms.HasOfflinePermission(ev.ID, BypassLoginUsernames) {
		return LoginResult{Allowed: true}
	}

	for _, command := range m.settings.DisallowedUsernameCommands {
		command = strings.ReplaceAll(command, "{uuid}", string(ev.ID))
		command = strings.ReplaceAll(command, "{player}", ev.Name)
		m.commands.RunConsoleCommand(command)
	}

	m.logger.Info("Rejected disallowed username",
		zap.String("player", ev.Name),
		zap.String("uuid", string(ev.ID)))
	eventCount.WithLabelValues("login", "cancelled").Inc()

	return LoginResult{
		KickMessage: m.lang.Resolve("player-kick-disallowed-nickname"),
		Reason:      core.ReasonDisallowedName,
	}
}

func (m *Moderator) disallowedName(name string) bool {
	for _, re := range m.settings.DisallowedUsernames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Join resets the connection state and starts loading its session. The join
// message is broadcast once the data arrived.
func (m *Moderator) Join(ev JoinEvent) MessageResult {
	player := ev.Player
	c := m.sessions.Get(player.ID())
	delete(m.kicked, player.ID())

	c.Reset()
	c.MovedFromJoin = false
	c.JoinLocation = player.Location()
	c.LastLoginAt = m.now()
	c.PendingRemoteJoinMessage = ev.RemoteJoinPending

	res := MessageResult{Message: ev.Message}
	if m.settings.ApplyOn[core.CategoryJoin] {
		res.Message = ""
		res.ClearMessage = true
	}

	if m.settings.DelayJoinUntilLogged && !player.IsLoggedIn() {
		m.logger.Debug("Waiting for authentication before loading session",
			zap.String("player", player.Name()))
		c.DeferredLoad = true
		c.DeferredJoinMessage = ev.Message
		res.LoadDeferred = true
		return res
	}

	m.beginLoad(c, player, ev.Message)
	return res
}

// AuthLogin starts a session load that was deferred until authentication
func (m *Moderator) AuthLogin(player core.Player) bool {
	c, ok := m.sessions.Lookup(player.ID())
	if !ok || !c.DeferredLoad {
		return false
	}

	message := c.DeferredJoinMessage
	c.DeferredLoad = false
	c.DeferredJoinMessage = ""
	m.beginLoad(c, player, message)
	return true
}

func (m *Moderator) beginLoad(c *session.Cache, player core.Player, joinMessage string) {
	sessionLoadCount.WithLabelValues("started").Inc()
	m.sessions.BeginLoad(c, m.loader, m.sched, func(c *session.Cache) {
		m.onReady(c, player, joinMessage)
	})
}

// onReady runs on the dispatch thread once the session data was applied
func (m *Moderator) onReady(c *session.Cache, player core.Player, joinMessage string) {
	sessionLoadCount.WithLabelValues("ready").Inc()

	now := m.now()
	data := c.Data()
	data.Name = player.Name()
	if data.FirstSeen.IsZero() {
		data.FirstSeen = now
	}
	data.LastSeen = now
	data.JoinCount++
	if until, ok := m.pendingMutes[player.ID()]; ok {
		data.MutedUntil = until
		delete(m.pendingMutes, player.ID())
	}
	m.save(data)

	if !m.settings.ApplyOn[core.CategoryJoin] {
		return
	}
	if c.PendingRemoteJoinMessage {
		c.PendingRemoteJoinMessage = false
		return
	}

	mctx := core.NewContext(player, c, core.CategoryJoin)
	d := m.gate.Decide(core.CategoryJoin, mctx)
	if d.Suppress {
		eventCount.WithLabelValues(string(core.CategoryJoin), "suppressed").Inc()
		return
	}
	m.broadcast.Broadcast(core.CategoryJoin, mctx, joinMessage)
	eventCount.WithLabelValues(string(core.CategoryJoin), "passed").Inc()
}

// Quit handles a disconnect. A session that is not loaded yet has its load
// cancelled and is evicted, and the quit message is silenced.
func (m *Moderator) Quit(ev LeaveEvent) MessageResult {
	return m.leave(core.CategoryQuit, ev.Player, ev.Message)
}

// Kick handles a kick. Spam kicks are cancelled unless the player may bypass
// them, otherwise the kick is handled like a disconnect.
func (m *Moderator) Kick(ev KickEvent) MessageResult {
	if isSpamKick(ev.Reason) && !ev.Player.HasPermission(BypassSpamKick) {
		m.warner.Info("spam-kick", "Player was kicked for chatting or running commands rapidly, "+
			"give "+BypassSpamKick+" to players that should not be protected from spam kicks",
			zap.String("player", ev.Player.Name()))
		eventCount.WithLabelValues(string(core.CategoryKick), "cancelled").Inc()

		return MessageResult{
			Result:  Result{Cancelled: true, Reason: core.ReasonSpamKick},
			Message: ev.Message,
		}
	}
	res := m.leave(core.CategoryKick, ev.Player, ev.Message)
	m.kicked[ev.Player.ID()] = true
	return res
}

func isSpamKick(reason string) bool {
	return reason == "disconnect.spam" || strings.EqualFold(reason, "kicked for spamming")
}

func (m *Moderator) leave(category core.Category, player core.Player, message string) MessageResult {
	id := player.ID()

	// the quit following a kick finds the session already cleaned up
	if category == core.CategoryQuit && m.kicked[id] {
		delete(m.kicked, id)
		if m.settings.ClearOnExit {
			m.sessions.Remove(id)
		}
		return MessageResult{ClearMessage: true}
	}

	c, ready := m.ready(category, player)
	if !ready {
		if c != nil {
			c.CancelPendingLoad()
		}
		m.warner.Warn("not-ready-"+string(category), "Silencing leave message as session data was not loaded yet",
			zap.String("player", player.Name()),
			zap.String("category", string(category)))
		m.sessions.Remove(id)
		return MessageResult{ClearMessage: true}
	}

	mctx := core.NewContext(player, c, category)
	res := MessageResult{Message: message}
	res.Decision = m.gate.Decide(category, mctx)

	show := true
	if category == core.CategoryQuit && m.settings.HideQuitIfNotLogged && !player.IsLoggedIn() {
		show = false
	}

	if show && m.settings.ApplyOn[category] {
		if !res.Decision.Suppress {
			m.broadcast.Broadcast(category, mctx, message)
			eventCount.WithLabelValues(string(category), "passed").Inc()
		} else {
			eventCount.WithLabelValues(string(category), "suppressed").Inc()
		}
		show = false
	}
	if !show {
		res.Message = ""
		res.ClearMessage = true
	}

	data := c.Data()
	data.LastSeen = m.now()
	m.save(data)

	c.Reset()
	if m.settings.ClearOnExit {
		m.sessions.Remove(id)
	}
	return res
}

// Death broadcasts the death message. Sessions that are not ready keep the
// vanilla message.
func (m *Moderator) Death(ev DeathEvent) MessageResult {
	player := ev.Player
	res := MessageResult{Message: ev.Message}

	c, ready := m.ready(core.CategoryDeath, player)
	if !ready || !m.settings.ApplyOn[core.CategoryDeath] {
		return res
	}

	res.Message = ""
	res.ClearMessage = true
	if ev.Minigame {
		return res
	}

	mctx := core.NewContext(player, c, core.CategoryDeath)
	res.Decision = m.gate.Decide(core.CategoryDeath, mctx)
	if res.Decision.Suppress {
		eventCount.WithLabelValues(string(core.CategoryDeath), "suppressed").Inc()
		return res
	}

	m.broadcast.Broadcast(core.CategoryDeath, mctx, ev.Message)
	eventCount.WithLabelValues(string(core.CategoryDeath), "passed").Inc()
	return res
}

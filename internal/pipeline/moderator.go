// Package pipeline orchestrates moderation of player events: it gates on
// session readiness, runs the rule engine and the mute gate, and fans the
// result out to the broadcast, spy and log sinks.
package pipeline

import (
	"context"
	"regexp"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/mute"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/mikey/chatguard/internal/session"
	"go.uber.org/zap"
)

// Permissions checked by the pipeline
const (
	BypassLoginUsernames = "chatguard.bypass.login_usernames"
	BypassSpamKick       = "chatguard.bypass.spam_kick"
)

// Settings holds the pipeline behaviour read from configuration
type Settings struct {
	// ApplyOn lists the lifecycle messages chatguard takes over
	ApplyOn map[core.Category]bool
	// ColorsApplyOn lists the surfaces where stripped text is written back
	ColorsApplyOn map[core.Surface]bool
	// SignCheckMode is 1 (whole text), 2 (per line) or 3 (both)
	SignCheckMode int

	DelayJoinUntilLogged bool
	HideQuitIfNotLogged  bool
	ClearOnExit          bool

	DisallowedUsernames        []*regexp.Regexp
	DisallowedUsernameCommands []string

	// StuckLoadAfter is how long a load may run before operators are warned
	StuckLoadAfter time.Duration
}

// Dependencies are the collaborators of a Moderator. Store may be nil, the
// loaded data is then never written back.
type Dependencies struct {
	Sessions  *session.Registry
	Loader    core.SessionLoader
	Store     core.SessionStore
	Engine    *rules.Engine
	Gate      *mute.Gate
	Lang      core.Lang
	Broadcast core.BroadcastSink
	Spy       core.SpySink
	Log       core.LogSink
	Commands  core.CommandDispatcher
	Notifier  core.Notifier
	World     core.World
	Perms     core.PermissionLookup
	Scheduler core.Scheduler
	Warner    *Warner
}

// Moderator handles player events. Every method must be called from the
// dispatch thread.
type Moderator struct {
	sessions  *session.Registry
	loader    core.SessionLoader
	store     core.SessionStore
	engine    *rules.Engine
	gate      *mute.Gate
	lang      core.Lang
	broadcast core.BroadcastSink
	spy       core.SpySink
	log       core.LogSink
	commands  core.CommandDispatcher
	notifier  core.Notifier
	world     core.World
	perms     core.PermissionLookup
	sched     core.Scheduler
	warner    *Warner
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time

	// pendingMutes holds mutes set while the player had no loaded session,
	// applied once a load completes
	pendingMutes map[core.PlayerID]time.Time
	// kicked marks players whose kick already ran the leave handling
	kicked map[core.PlayerID]bool
}

// NewModerator creates a new moderation pipeline
func NewModerator(deps Dependencies, settings Settings, logger *zap.Logger) *Moderator {
	return &Moderator{
		sessions:  deps.Sessions,
		loader:    deps.Loader,
		store:     deps.Store,
		engine:    deps.Engine,
		gate:      deps.Gate,
		lang:      deps.Lang,
		broadcast: deps.Broadcast,
		spy:       deps.Spy,
		log:       deps.Log,
		commands:  deps.Commands,
		notifier:  deps.Notifier,
		world:     deps.World,
		perms:     deps.Perms,
		sched:     deps.Scheduler,
		warner:    deps.Warner,
		settings:  settings,
		logger:    logger,
		now:       time.Now,

		pendingMutes: make(map[core.PlayerID]time.Time),
		kicked:       make(map[core.PlayerID]bool),
	}
}

// Sessions returns the session registry
func (m *Moderator) Sessions() *session.Registry {
	return m.sessions
}

// Gate returns the mute gate
func (m *Moderator) Gate() *mute.Gate {
	return m.gate
}

// ready returns the loaded session of player. On false the event has been
// counted as degraded and must not reach any sink.
func (m *Moderator) ready(category core.Category, player core.Player) (*session.Cache, bool) {
	c, ok := m.sessions.Lookup(player.ID())
	if ok && c.IsReady() {
		return c, true
	}

	degradedCount.WithLabelValues(string(category)).Inc()
	if ok {
		m.checkStuck(c)
	}
	return c, false
}

// checkStuck warns once when a load runs far longer than expected
func (m *Moderator) checkStuck(c *session.Cache) {
	task := c.PendingLoad()
	if task == nil || m.settings.StuckLoadAfter <= 0 {
		return
	}
	if waited := m.now().Sub(task.Started()); waited >= m.settings.StuckLoadAfter {
		m.warner.Warn("stuck-session-load", "Session load has not completed, events are degraded until it does",
			zap.String("player", string(c.ID())),
			zap.Duration("waited", waited))
	}
}

func (m *Moderator) notify(player core.Player, level core.NotifyLevel, key string) {
	if key == "" || m.notifier == nil {
		return
	}
	m.notifier.Notify(player, level, m.lang.Resolve(key))
}

// cancelled converts an engine or guard error into a Result and tells the
// author when the cancellation is visible
func (m *Moderator) cancelled(category core.Category, player core.Player, err error) (Result, bool) {
	cerr, ok := core.AsCancelled(err)
	if !ok {
		return Result{}, false
	}

	res := Result{
		Cancelled: true,
		Silent:    cerr.Silent,
		Reason:    cerr.Reason,
		Rule:      cerr.Rule,
	}
	if !cerr.Silent {
		level := core.NotifyWarn
		if cerr.Reason == core.ReasonDuplicateSign {
			level = core.NotifyError
		}
		m.notify(player, level, cerr.MessageKey)
	}

	m.logger.Debug("Action cancelled",
		zap.String("category", string(category)),
		zap.String("player", player.Name()),
		zap.String("reason", cerr.Reason),
		zap.String("rule", cerr.Rule),
		zap.Bool("silent", cerr.Silent))
	eventCount.WithLabelValues(string(category), outcomeOf(res)).Inc()
	return res, true
}

// mutedResult cancels an action visibly because its author is muted
func (m *Moderator) mutedResult(category core.Category, player core.Player, d mute.Decision, key string) Result {
	m.notify(player, core.NotifyWarn, key)
	res := Result{Cancelled: true, Reason: core.ReasonMuted, Decision: d}
	eventCount.WithLabelValues(string(category), outcomeOf(res)).Inc()
	return res
}

// dispatch sends the moderated payload to the spy and log sinks unless the
// outcome asked otherwise
func (m *Moderator) dispatch(category core.Category, mctx *core.Context, out core.Outcome, payload []string) {
	if !out.SpyingIgnored && m.spy != nil {
		m.spy.Mirror(category, mctx, payload)
	}
	if !out.LoggingIgnored && m.log != nil {
		m.log.Record(category, mctx, payload)
	}
}

// save writes a snapshot of data off the dispatch thread
func (m *Moderator) save(data *core.SessionData) {
	if m.store == nil || data == nil {
		return
	}
	snapshot := *data
	m.sched.RunAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := m.store.Save(ctx, &snapshot); err != nil {
			m.logger.Error("Failed to save session data",
				zap.String("player", string(snapshot.PlayerID)),
				zap.Error(err))
		}
	})
}

func outcomeOf(res Result) string {
	switch {
	case res.Cancelled && res.Silent:
		return "cancelled_silently"
	case res.Cancelled:
		return "cancelled"
	case res.Silent:
		return "hidden"
	}
	return "passed"
}

package pipeline

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/mute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJoinBroadcastsOnceLoaded(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")

	res := h.mod.Join(JoinEvent{Player: p, Message: "Steve joined"})
	assert.True(t, res.ClearMessage)
	assert.Empty(t, res.Message)
	assert.Empty(t, h.sinks.broadcasts)

	h.sched.Drain()

	assert.Equal(t, []string{"join:Steve joined"}, h.sinks.broadcasts)
	require.Len(t, h.store.saves, 1)
	assert.Equal(t, 1, h.store.saves[0].JoinCount)
	assert.Equal(t, "Steve", h.store.saves[0].Name)
	assert.False(t, h.store.saves[0].FirstSeen.IsZero())
}

func TestJoinKeepsVanillaMessageWhenNotTakenOver(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: Settings{}})
	p := newPlayer("Steve")

	res := h.mod.Join(JoinEvent{Player: p, Message: "Steve joined"})
	h.sched.Drain()

	assert.Equal(t, "Steve joined", res.Message)
	assert.False(t, res.ClearMessage)
	assert.Empty(t, h.sinks.broadcasts)
}

func TestJoinSkipsBroadcastForRemoteJoin(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")

	h.mod.Join(JoinEvent{Player: p, Message: "Steve joined", RemoteJoinPending: true})
	h.sched.Drain()

	assert.Empty(t, h.sinks.broadcasts)
	c, ok := h.mod.Sessions().Lookup(p.ID())
	require.True(t, ok)
	assert.True(t, c.IsReady())
	assert.False(t, c.PendingRemoteJoinMessage)
}

func TestJoinVanishedIsNotBroadcast(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")
	p.vanished = true

	h.join(p)
	assert.Empty(t, h.sinks.broadcasts)
}

func TestJoinDeferredUntilAuthLogin(t *testing.T) {
	settings := defaultSettings()
	settings.DelayJoinUntilLogged = true
	h := newHarness(t, harnessOptions{settings: settings})
	p := newPlayer("Steve")
	p.loggedIn = false

	res := h.mod.Join(JoinEvent{Player: p, Message: "Steve joined"})
	h.sched.Drain()

	assert.True(t, res.LoadDeferred)
	assert.Equal(t, 0, h.store.loads)
	assert.Empty(t, h.sinks.broadcasts)

	p.loggedIn = true
	assert.True(t, h.mod.AuthLogin(p))
	assert.False(t, h.mod.AuthLogin(p))
	h.sched.Drain()

	assert.Equal(t, 1, h.store.loads)
	assert.Equal(t, []string{"join:Steve joined"}, h.sinks.broadcasts)
}

func TestNotReadySessionsReachNoSink(t *testing.T) {
	h := newHarness(t, harnessOptions{
		settings: defaultSettings(),
		rules:    []core.Rule{regexRule(t, "any", ".")},
	})
	p := newPlayer("Steve")
	loc := core.Location{World: "world", X: 1, Y: 64, Z: 1}
	h.world.materials[loc] = "OAK_SIGN"

	h.mod.Join(JoinEvent{Player: p, Message: "Steve joined"})

	chat := h.mod.Chat(context.Background(), ChatEvent{Player: p, Message: "hello"})
	assert.True(t, chat.Cancelled)
	assert.Equal(t, core.ReasonNotReady, chat.Reason)

	sign := h.mod.Sign(context.Background(), SignEvent{Player: p, Location: loc, Material: "OAK_SIGN", Lines: []string{"a", "b", "c", "d"}})
	assert.Equal(t, []string{"a", "b", "c", "d"}, sign.Lines)

	rename := h.mod.Rename(context.Background(), RenameEvent{Player: p, Name: "Sword"})
	assert.Equal(t, "Sword", rename.Name)

	death := h.mod.Death(DeathEvent{Player: p, Message: "Steve fell"})
	assert.Equal(t, "Steve fell", death.Message)
	assert.False(t, death.ClearMessage)

	mail := h.mod.SendMail(context.Background(), MailEvent{Player: p, Body: []string{"hi"}})
	assert.True(t, mail.Cancelled)

	quit := h.mod.Quit(LeaveEvent{Player: p, Message: "Steve left"})
	assert.True(t, quit.ClearMessage)
	assert.Empty(t, quit.Message)
	assert.Equal(t, 0, h.mod.Sessions().Len())

	// the load finishing late must not broadcast the join
	h.sched.Drain()

	assert.Zero(t, h.sinks.total())
	assert.Zero(t, h.evals)
}

func TestQuitDuringLoadCancelsAndIgnoresLateCompletion(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")

	h.mod.Join(JoinEvent{Player: p, Message: "first"})
	first, ok := h.mod.Sessions().Lookup(p.ID())
	require.True(t, ok)
	task := first.PendingLoad()
	require.NotNil(t, task)

	h.mod.Quit(LeaveEvent{Player: p, Message: "left"})
	assert.True(t, task.Cancelled())
	assert.False(t, first.Loading())

	// the player reconnects before the first load returned
	h.mod.Join(JoinEvent{Player: p, Message: "second"})
	second, ok := h.mod.Sessions().Lookup(p.ID())
	require.True(t, ok)
	require.NotSame(t, first, second)

	h.sched.Drain()

	assert.False(t, first.IsReady())
	assert.False(t, task.Completed())
	assert.True(t, second.IsReady())
	assert.Equal(t, []string{"join:second"}, h.sinks.broadcasts)
}

func TestQuitSoftHideBroadcastsAndRecordsMute(t *testing.T) {
	h := newHarness(t, harnessOptions{
		settings: defaultSettings(),
		mute:     mute.Settings{HideQuits: true, SoftHide: true},
	})
	p := newPlayer("Steve")
	h.store.data[p.ID()] = core.SessionData{PlayerID: p.ID(), MutedUntil: time.Now().Add(time.Hour)}
	h.join(p)
	h.sinks.broadcasts = nil

	res := h.mod.Quit(LeaveEvent{Player: p, Message: "Steve left the game"})

	assert.Equal(t, []string{"quit:Steve left the game"}, h.sinks.broadcasts)
	assert.True(t, res.Decision.Muted)
	assert.False(t, res.Decision.Suppress)
	assert.True(t, res.ClearMessage)
}

func TestQuitHardMuteSuppresses(t *testing.T) {
	h := newHarness(t, harnessOptions{
		settings: defaultSettings(),
		mute:     mute.Settings{HideQuits: true},
	})
	p := newPlayer("Steve")
	h.join(p)
	h.sinks.broadcasts = nil
	h.mod.Gate().SetServerMuted(true)

	res := h.mod.Quit(LeaveEvent{Player: p, Message: "Steve left the game"})

	assert.Empty(t, h.sinks.broadcasts)
	assert.True(t, res.Decision.Suppress)
	assert.True(t, res.ClearMessage)
}

func TestQuitResetsAndOptionallyEvicts(t *testing.T) {
	settings := defaultSettings()
	h := newHarness(t, harnessOptions{settings: settings})
	p := newPlayer("Steve")
	h.join(p)

	h.mod.Quit(LeaveEvent{Player: p, Message: "bye"})
	c, ok := h.mod.Sessions().Lookup(p.ID())
	require.True(t, ok)
	assert.False(t, c.IsReady())

	settings.ClearOnExit = true
	h = newHarness(t, harnessOptions{settings: settings})
	h.join(p)
	h.mod.Quit(LeaveEvent{Player: p, Message: "bye"})
	assert.Equal(t, 0, h.mod.Sessions().Len())
}

func TestQuitHiddenWhenNotAuthenticated(t *testing.T) {
	settings := defaultSettings()
	settings.HideQuitIfNotLogged = true
	h := newHarness(t, harnessOptions{settings: settings})
	p := newPlayer("Steve")
	h.join(p)
	h.sinks.broadcasts = nil
	p.loggedIn = false

	res := h.mod.Quit(LeaveEvent{Player: p, Message: "bye"})
	assert.Empty(t, h.sinks.broadcasts)
	assert.True(t, res.ClearMessage)
}

func TestKickSpamIsCancelledUnlessBypassed(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")
	h.join(p)
	h.sinks.broadcasts = nil

	res := h.mod.Kick(KickEvent{Player: p, Reason: "Kicked for spamming", Message: "Steve was kicked"})
	assert.True(t, res.Cancelled)
	assert.Equal(t, core.ReasonSpamKick, res.Reason)
	assert.Empty(t, h.sinks.broadcasts)

	p.perms[BypassSpamKick] = true
	res = h.mod.Kick(KickEvent{Player: p, Reason: "disconnect.spam", Message: "Steve was kicked"})
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"kick:Steve was kicked"}, h.sinks.broadcasts)
}

func TestKickNotReadyCancelsLoadAndEvicts(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")

	h.mod.Join(JoinEvent{Player: p, Message: "joined"})
	res := h.mod.Kick(KickEvent{Player: p, Reason: "Banned", Message: "Steve was kicked"})
	h.sched.Drain()

	assert.True(t, res.ClearMessage)
	assert.Equal(t, 0, h.mod.Sessions().Len())
	assert.Zero(t, h.sinks.total())
}

func TestQuitAfterKickKeepsNotReadyWarning(t *testing.T) {
	for _, clearOnExit := range []bool{true, false} {
		settings := defaultSettings()
		settings.ClearOnExit = clearOnExit
		h := newHarness(t, harnessOptions{settings: settings})
		p := newPlayer("Steve")
		h.join(p)

		h.mod.Kick(KickEvent{Player: p, Reason: "Banned", Message: "Steve was kicked"})
		res := h.mod.Quit(LeaveEvent{Player: p, Message: "Steve left"})
		h.sched.Drain()

		assert.True(t, res.ClearMessage)
		assert.Equal(t, []string{"kick:Steve was kicked"}, h.sinks.broadcasts)
		assert.True(t, h.mod.warner.Once("not-ready-quit"), "clear_on_exit=%v", clearOnExit)
	}
}

func TestDeathHardMuteClearsMessage(t *testing.T) {
	h := newHarness(t, harnessOptions{
		settings: defaultSettings(),
		mute:     mute.Settings{HideDeaths: true},
	})
	p := newPlayer("Steve")
	h.store.data[p.ID()] = core.SessionData{PlayerID: p.ID(), MutedUntil: time.Now().Add(time.Hour)}
	h.join(p)
	h.sinks.broadcasts = nil

	res := h.mod.Death(DeathEvent{Player: p, Message: "Steve fell from a high place"})

	assert.Empty(t, h.sinks.broadcasts)
	assert.True(t, res.ClearMessage)
	assert.Empty(t, res.Message)
	assert.True(t, res.Decision.Muted)
	assert.True(t, res.Decision.Suppress)
}

func TestDeathBroadcastsAndMinigameClears(t *testing.T) {
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	p := newPlayer("Steve")
	h.join(p)
	h.sinks.broadcasts = nil

	res := h.mod.Death(DeathEvent{Player: p, Message: "Steve drowned"})
	assert.True(t, res.ClearMessage)
	assert.Equal(t, []string{"death:Steve drowned"}, h.sinks.broadcasts)

	res = h.mod.Death(DeathEvent{Player: p, Message: "Steve lost the duel", Minigame: true})
	assert.True(t, res.ClearMessage)
	assert.Len(t, h.sinks.broadcasts, 1)
}

func TestPreLoginRejectsDisallowedNames(t *testing.T) {
	settings := defaultSettings()
	settings.DisallowedUsernames = []*regexp.Regexp{regexp.MustCompile(`(?i)^bot_`)}
	settings.DisallowedUsernameCommands = []string{"ban {player} bots", "log {uuid}"}
	h := newHarness(t, harnessOptions{settings: settings})

	res := h.mod.PreLogin(PreLoginEvent{ID: "u-1", Name: "Bot_42"})
	assert.False(t, res.Allowed)
	assert.Equal(t, "lang:player-kick-disallowed-nickname", res.KickMessage)
	assert.Equal(t, []string{"ban Bot_42 bots", "log u-1"}, h.commands.ran)

	h.perms.granted["u-2"] = map[string]bool{BypassLoginUsernames: true}
	assert.True(t, h.mod.PreLogin(PreLoginEvent{ID: "u-2", Name: "bot_owner"}).Allowed)
	assert.True(t, h.mod.PreLogin(PreLoginEvent{ID: "u-3", Name: "Steve"}).Allowed)
	assert.Len(t, h.commands.ran, 2)
}

func TestStuckLoadWarnsOnce(t *testing.T) {
	observed, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, harnessOptions{settings: defaultSettings()})
	warner, err := NewWarner(zap.New(observed), 0)
	require.NoError(t, err)
	h.mod.warner = warner
	h.mod.settings.StuckLoadAfter = time.Second
	h.mod.now = func() time.Time { return time.Now().Add(time.Minute) }

	p := newPlayer("Steve")
	h.mod.Join(JoinEvent{Player: p, Message: "joined"})

	h.mod.Chat(context.Background(), ChatEvent{Player: p, Message: "one"})
	h.mod.Chat(context.Background(), ChatEvent{Player: p, Message: "two"})

	assert.Equal(t, 1, logs.FilterMessage("Session load has not completed, events are degraded until it does").Len())
}

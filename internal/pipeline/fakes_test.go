package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mikey/chatguard/internal/adapters/color"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/dispatch"
	"github.com/mikey/chatguard/internal/mute"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/mikey/chatguard/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlayer struct {
	id       core.PlayerID
	name     string
	perms    map[string]bool
	vanished bool
	loggedIn bool
	loc      core.Location
}

func newPlayer(name string) *fakePlayer {
	return &fakePlayer{
		id:       core.PlayerID("uuid-" + strings.ToLower(name)),
		name:     name,
		perms:    map[string]bool{},
		loggedIn: true,
	}
}

func (p *fakePlayer) ID() core.PlayerID { return p.id }
func (p *fakePlayer) Name() string { return p.name }
func (p *fakePlayer) HasPermission(perm string) bool { return p.perms[perm] }
func (p *fakePlayer) IsVanished() bool { return p.vanished }
func (p *fakePlayer) IsLoggedIn() bool { return p.loggedIn }
func (p *fakePlayer) Location() core.Location { return p.loc }

type fakeStore struct {
	data  map[core.PlayerID]core.SessionData
	saves []core.SessionData
	loads int

	// hold keeps saves back until release, like a slow remote write
	hold bool
	held []core.SessionData
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[core.PlayerID]core.SessionData{}}
}

func (s *fakeStore) Load(_ context.Context, id core.PlayerID) (*core.SessionData, error) {
	s.loads++
	d, ok := s.data[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *fakeStore) Save(_ context.Context, data *core.SessionData) error {
	if s.hold {
		s.held = append(s.held, *data)
		return nil
	}
	s.saves = append(s.saves, *data)
	s.data[data.PlayerID] = *data
	return nil
}

// release applies the held saves in order
func (s *fakeStore) release() {
	s.hold = false
	for _, d := range s.held {
		s.saves = append(s.saves, d)
		s.data[d.PlayerID] = d
	}
	s.held = nil
}

// sinks records every broadcast, spy and log call as "category:text"
type sinks struct {
	broadcasts []string
	mirrors    []string
	records    []string
}

func (s *sinks) Broadcast(category core.Category, _ *core.Context, text string) {
	s.broadcasts = append(s.broadcasts, fmt.Sprintf("%s:%s", category, text))
}

func (s *sinks) Mirror(category core.Category, _ *core.Context, payload []string) {
	s.mirrors = append(s.mirrors, fmt.Sprintf("%s:%s", category, strings.Join(payload, "|")))
}

func (s *sinks) Record(category core.Category, _ *core.Context, payload []string) {
	s.records = append(s.records, fmt.Sprintf("%s:%s", category, strings.Join(payload, "|")))
}

func (s *sinks) total() int {
	return len(s.broadcasts) + len(s.mirrors) + len(s.records)
}

type fakeLang struct{}

func (fakeLang) Resolve(key string) string { return "lang:" + key }

type fakeNotifier struct {
	notes []string
}

func (n *fakeNotifier) Notify(player core.Player, level core.NotifyLevel, text string) {
	n.notes = append(n.notes, fmt.Sprintf("%s:%s:%s", player.Name(), level, text))
}

type sentSign struct {
	loc   core.Location
	lines []string
}

type fakeWorld struct {
	materials map[core.Location]string
	sent      []sentSign
	refreshes int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{materials: map[core.Location]string{}}
}

func (w *fakeWorld) BlockMaterial(loc core.Location) string { return w.materials[loc] }

func (w *fakeWorld) IsSign(loc core.Location) bool {
	return strings.HasSuffix(w.materials[loc], "_SIGN")
}

func (w *fakeWorld) SendSignChange(_ core.Player, loc core.Location, lines []string) {
	w.sent = append(w.sent, sentSign{loc: loc, lines: append([]string(nil), lines...)})
}

func (w *fakeWorld) UpdateInventory(core.Player) { w.refreshes++ }

type fakeCommands struct {
	ran []string
}

func (c *fakeCommands) RunConsoleCommand(command string) { c.ran = append(c.ran, command) }

type fakePerms struct {
	granted map[core.PlayerID]map[string]bool
}

func (p *fakePerms) HasOfflinePermission(id core.PlayerID, perm string) bool {
	return p.granted[id][perm]
}

// countingMatcher counts every rule evaluation
type countingMatcher struct {
	inner core.Matcher
	calls *int
}

func (m countingMatcher) Match(ctx context.Context, text string) (bool, error) {
	*m.calls++
	return m.inner.Match(ctx, text)
}

func (m countingMatcher) Replace(text, replacement string) string {
	return m.inner.Replace(text, replacement)
}

type harness struct {
	mod      *Moderator
	sched    *dispatch.Manual
	store    *fakeStore
	sinks    *sinks
	notifier *fakeNotifier
	world    *fakeWorld
	commands *fakeCommands
	perms    *fakePerms
	evals    int
}

type harnessOptions struct {
	settings Settings
	mute     mute.Settings
	rules    []core.Rule
}

func defaultSettings() Settings {
	return Settings{
		ApplyOn: map[core.Category]bool{
			core.CategoryJoin:  true,
			core.CategoryQuit:  true,
			core.CategoryKick:  true,
			core.CategoryDeath: true,
		},
		ColorsApplyOn: map[core.Surface]bool{
			core.SurfaceSign:  true,
			core.SurfaceAnvil: true,
		},
		SignCheckMode: rules.SignCheckBoth,
	}
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	h := &harness{
		sched:    dispatch.NewManual(),
		store:    newFakeStore(),
		sinks:    &sinks{},
		notifier: &fakeNotifier{},
		world:    newFakeWorld(),
		commands: &fakeCommands{},
		perms:    &fakePerms{granted: map[core.PlayerID]map[string]bool{}},
	}

	counted := make([]core.Rule, len(opts.rules))
	for i, r := range opts.rules {
		r.Matcher = countingMatcher{inner: r.Matcher, calls: &h.evals}
		counted[i] = r
	}

	logger := zap.NewNop()
	warner, err := NewWarner(logger, 0)
	require.NoError(t, err)

	h.mod = NewModerator(Dependencies{
		Sessions:  session.NewRegistry(logger),
		Loader:    h.store,
		Store:     h.store,
		Engine:    rules.NewEngine(counted, color.NewStripper(""), logger),
		Gate:      mute.NewGate(opts.mute),
		Lang:      fakeLang{},
		Broadcast: h.sinks,
		Spy:       h.sinks,
		Log:       h.sinks,
		Commands:  h.commands,
		Notifier:  h.notifier,
		World:     h.world,
		Perms:     h.perms,
		Scheduler: h.sched,
		Warner:    warner,
	}, opts.settings, logger)

	return h
}

// join connects player and completes the session load
func (h *harness) join(p *fakePlayer) {
	h.mod.Join(JoinEvent{Player: p, Message: p.name + " joined"})
	h.sched.Drain()
}

func regexRule(t *testing.T, name, pattern string) core.Rule {
	t.Helper()
	m, err := rules.NewRegexMatcher(pattern)
	require.NoError(t, err)
	return core.Rule{Name: name, Matcher: m}
}

package rules

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mikey/chatguard/internal/adapters/color"
	"github.com/mikey/chatguard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMatcher struct {
	inner core.Matcher
	seen  []string
}

func (m *recordingMatcher) Match(ctx context.Context, text string) (bool, error) {
	m.seen = append(m.seen, text)
	return m.inner.Match(ctx, text)
}

func (m *recordingMatcher) Replace(text, replacement string) string {
	return m.inner.Replace(text, replacement)
}

type failingMatcher struct{}

func (failingMatcher) Match(context.Context, string) (bool, error) {
	return false, errors.New("provider unavailable")
}

func (failingMatcher) Replace(text, _ string) string { return text }

func regex(t *testing.T, pattern string) *RegexMatcher {
	t.Helper()
	m, err := NewRegexMatcher(pattern)
	require.NoError(t, err)
	return m
}

func newEngine(rules ...core.Rule) *Engine {
	return NewEngine(rules, color.NewStripper(""), zap.NewNop())
}

func TestCheckThreadsRewritesAndOrsFlags(t *testing.T) {
	eng := newEngine(
		core.Rule{Name: "one", Matcher: regex(t, "bad"), Rewrite: "good", HasRewrite: true, IgnoreLogging: true},
		core.Rule{Name: "two", Matcher: regex(t, "good"), Rewrite: "great", HasRewrite: true},
		core.Rule{Name: "three", Matcher: regex(t, "great"), IgnoreSpying: true},
		core.Rule{Name: "unmatched", Matcher: regex(t, "zzz"), CancelSilently: true},
	)

	out, err := eng.Check(context.Background(), core.CategoryChat, nil, "so bad")
	require.NoError(t, err)

	assert.Equal(t, "so great", out.Text)
	assert.True(t, out.TextChanged)
	assert.True(t, out.LoggingIgnored)
	assert.True(t, out.SpyingIgnored)
	assert.False(t, out.CancelledSilently)
}

func TestCheckSkipsRulesOfOtherCategories(t *testing.T) {
	eng := newEngine(core.Rule{
		Name:       "signs-only",
		Matcher:    regex(t, "x"),
		Categories: []core.Category{core.CategorySign},
		Rewrite:    "y",
		HasRewrite: true,
	})

	out, err := eng.Check(context.Background(), core.CategoryChat, nil, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out.Text)
	assert.False(t, out.TextChanged)
}

func TestCheckDenyCancelsVisibly(t *testing.T) {
	eng := newEngine(
		core.Rule{Name: "ads", Matcher: regex(t, `\bplay\.example\.com\b`), Deny: true, WarnKey: "rule-ads"},
	)

	_, err := eng.Check(context.Background(), core.CategoryChat, nil, "join play.example.com now")
	cerr, ok := core.AsCancelled(err)
	require.True(t, ok)
	assert.False(t, cerr.Silent)
	assert.Equal(t, "ads", cerr.Rule)
	assert.Equal(t, "rule-ads", cerr.MessageKey)
}

func TestCheckTreatsMatcherErrorsAsNoMatch(t *testing.T) {
	eng := newEngine(
		core.Rule{Name: "llm", Matcher: failingMatcher{}, Deny: true},
		core.Rule{Name: "after", Matcher: regex(t, "hi"), IgnoreSpying: true},
	)

	out, err := eng.Check(context.Background(), core.CategoryChat, nil, "hi")
	require.NoError(t, err)
	assert.True(t, out.SpyingIgnored)
}

func TestEvaluateMergesFlagsAcrossFragments(t *testing.T) {
	eng := newEngine(
		core.Rule{Name: "silent", Matcher: regex(t, "silent"), CancelSilently: true},
		core.Rule{Name: "nolog", Matcher: regex(t, "nolog"), IgnoreLogging: true},
		core.Rule{Name: "nospy", Matcher: regex(t, "nospy"), IgnoreSpying: true},
		core.Rule{Name: "rewrite", Matcher: regex(t, "swap"), Rewrite: "done", HasRewrite: true},
	)
	words := []string{"silent", "nolog", "nospy", "swap"}

	// every subset of trigger words spread over separate lines
	for mask := 0; mask < 1<<len(words); mask++ {
		lines := make([]string, SignLines)
		for i, w := range words {
			if mask&(1<<i) != 0 {
				lines[i] = w
			}
		}

		ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil, lines, SignMode(SignCheckPerLine, false))
		require.NoError(t, err)

		assert.Equal(t, mask&1 != 0, ev.CancelledSilently, "mask %b", mask)
		assert.Equal(t, mask&2 != 0, ev.LoggingIgnored, "mask %b", mask)
		assert.Equal(t, mask&4 != 0, ev.SpyingIgnored, "mask %b", mask)
		assert.Equal(t, mask&8 != 0, ev.TextChanged, "mask %b", mask)
	}
}

func TestOutcomeMergeIsAssociative(t *testing.T) {
	a := core.Outcome{Text: "a", CancelledSilently: true}
	b := core.Outcome{Text: "b", LoggingIgnored: true}
	c := core.Outcome{Text: "c", SpyingIgnored: true, TextChanged: true}

	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	assert.Equal(t, core.Outcome{Text: "c", CancelledSilently: true, LoggingIgnored: true, SpyingIgnored: true, TextChanged: true}, a.Merge(b).Merge(c))
}

func TestEvaluateSignWholeTextRewrite(t *testing.T) {
	eng := newEngine(core.Rule{
		Name:       "shout",
		Matcher:    regex(t, "^hello world"),
		Rewrite:    "HELLO WORLD",
		HasRewrite: true,
	})

	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{"hello", "world", "", ""}, SignMode(SignCheckBoth, false))
	require.NoError(t, err)

	assert.Equal(t, []string{"HELLO WORLD", "", "", ""}, ev.Lines)
	assert.Equal(t, []bool{true, true, true, true}, ev.Changed)
	assert.True(t, ev.TextChanged)
}

func TestEvaluateWholeTextReflowsLongRewrite(t *testing.T) {
	eng := newEngine(core.Rule{
		Name:       "expand",
		Matcher:    regex(t, "^short"),
		Rewrite:    "this replacement is far longer than one sign line",
		HasRewrite: true,
	})

	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{"short", "", "", ""}, SignMode(SignCheckWholeText, false))
	require.NoError(t, err)

	assert.Equal(t, []string{"this replacemen", "t is far longer", " than one sign ", "line"}, ev.Lines)
}

func TestEvaluatePerLineOnlyTouchesUnchangedSlots(t *testing.T) {
	whole := &recordingMatcher{inner: regex(t, "^a b")}
	eng := newEngine(core.Rule{Name: "joined", Matcher: whole, Rewrite: "X", HasRewrite: true})

	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{"a", "b", "c", "d"}, SignMode(SignCheckBoth, false))
	require.NoError(t, err)

	// whole-text rewrote every slot, so no per-line pass ran
	assert.Equal(t, []string{"a b c d"}, whole.seen)
	assert.Equal(t, []string{"X c d", "", "", ""}, ev.Lines)
}

func TestEvaluatePerLineRewritesSingleSlot(t *testing.T) {
	eng := newEngine(core.Rule{Name: "censor", Matcher: regex(t, "darn"), Rewrite: "****", HasRewrite: true})

	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{"oh", "darn it", "", ""}, SignMode(SignCheckPerLine, false))
	require.NoError(t, err)

	assert.Equal(t, []string{"oh", "**** it", "", ""}, ev.Lines)
	assert.Equal(t, []bool{false, true, false, false}, ev.Changed)
}

func TestEvaluateSignTruncationBounds(t *testing.T) {
	rec := &recordingMatcher{inner: regex(t, "x")}
	eng := newEngine(core.Rule{
		Name:       "widen",
		Matcher:    rec,
		Rewrite:    "wide-replacement",
		HasRewrite: true,
	})

	long := strings.Repeat("x", 80)
	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{long, "ok", long, "y"}, SignMode(SignCheckPerLine, false))
	require.NoError(t, err)

	require.NotEmpty(t, rec.seen)
	for _, seen := range rec.seen {
		assert.LessOrEqual(t, utf8.RuneCountInString(seen), SignMaxInputLength)
	}
	for i, line := range ev.Lines {
		if ev.Changed[i] {
			assert.LessOrEqual(t, utf8.RuneCountInString(line), SignSlotWidth)
		}
	}
	assert.Equal(t, strings.Repeat("x", SignMaxInputLength), ev.Input[0])
}

func TestEvaluateRenameColorOnlyCancelsSilently(t *testing.T) {
	eng := newEngine()

	_, err := eng.Evaluate(context.Background(), core.CategoryAnvilRename, nil, []string{"§k§k§k"}, RenameMode(true))
	cerr, ok := core.AsCancelled(err)
	require.True(t, ok)
	assert.True(t, cerr.Silent)
	assert.Equal(t, core.ReasonRewriteEmpty, cerr.Reason)
}

func TestEvaluateRenameRewrittenToBlankCancelsSilently(t *testing.T) {
	eng := newEngine(core.Rule{Name: "wipe", Matcher: regex(t, "badword"), Rewrite: "  ", HasRewrite: true})

	_, err := eng.Evaluate(context.Background(), core.CategoryAnvilRename, nil, []string{"badword"}, RenameMode(false))
	cerr, ok := core.AsCancelled(err)
	require.True(t, ok)
	assert.True(t, cerr.Silent)
}

func TestEvaluateRenameTrimsResult(t *testing.T) {
	eng := newEngine()

	ev, err := eng.Evaluate(context.Background(), core.CategoryAnvilRename, nil, []string{"  &aSword  "}, RenameMode(true))
	require.NoError(t, err)
	assert.Equal(t, "Sword", ev.Line(0))
	assert.False(t, ev.TextChanged)
}

func TestEvaluateDenyAbortsAndKeepsInput(t *testing.T) {
	later := &recordingMatcher{inner: regex(t, ".")}
	eng := newEngine(
		core.Rule{Name: "deny", Matcher: regex(t, "griefer"), Deny: true},
		core.Rule{Name: "later", Matcher: later},
	)

	ev, err := eng.Evaluate(context.Background(), core.CategorySign, nil,
		[]string{"griefer", "second", "", ""}, SignMode(SignCheckPerLine, false))
	_, ok := core.AsCancelled(err)
	require.True(t, ok)

	assert.Empty(t, later.seen)
	assert.Equal(t, []string{"griefer", "second", "", ""}, ev.Lines)
}

func TestEvaluateChatStripsBeforeRules(t *testing.T) {
	rec := &recordingMatcher{inner: regex(t, "hello")}
	eng := newEngine(core.Rule{Name: "greet", Matcher: rec, IgnoreLogging: true})

	ev, err := eng.Evaluate(context.Background(), core.CategoryChat, nil, []string{"&ahello"}, ChatMode())
	require.NoError(t, err)

	assert.Equal(t, []string{"hello"}, rec.seen)
	assert.Equal(t, "hello", ev.Text)
	assert.True(t, ev.LoggingIgnored)
	assert.False(t, ev.TextChanged)
}

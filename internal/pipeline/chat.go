package pipeline

import (
	"context"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
)

// Chat moderates a chat message. The server delivers Text, only to the
// author when the result is Silent.
func (m *Moderator) Chat(ctx context.Context, ev ChatEvent) ChatResult {
	player := ev.Player

	c, ready := m.ready(core.CategoryChat, player)
	if !ready {
		return ChatResult{Result: Result{Cancelled: true, Silent: true, Reason: core.ReasonNotReady}, Text: ev.Message}
	}

	mctx := core.NewContext(player, c, core.CategoryChat)
	d := m.gate.Decide(core.CategoryChat, mctx)
	if d.Suppress {
		return ChatResult{Result: m.mutedResult(core.CategoryChat, player, d, "command-mute-cannot-chat"), Text: ev.Message}
	}

	eval, err := m.engine.Evaluate(ctx, core.CategoryChat, mctx, []string{ev.Message}, rules.ChatMode())
	if res, ok := m.cancelled(core.CategoryChat, player, err); ok {
		res.Decision = d
		return ChatResult{Result: res, Text: ev.Message}
	}

	text := eval.Line(0)
	res := Result{Silent: eval.CancelledSilently, Decision: d}
	m.dispatch(core.CategoryChat, mctx, eval.Outcome, []string{text})

	eventCount.WithLabelValues(string(core.CategoryChat), outcomeOf(res)).Inc()
	return ChatResult{Result: res, Text: text}
}

package pipeline

import (
	"context"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
)

// StartMail remembers the draft a player started writing
func (m *Moderator) StartMail(ev MailEvent) Result {
	player := ev.Player

	c, ready := m.ready(core.CategoryMail, player)
	if !ready {
		return Result{Cancelled: true, Silent: true, Reason: core.ReasonNotReady}
	}

	mctx := core.NewContext(player, c, core.CategoryMail)
	d := m.gate.Decide(core.CategoryMail, mctx)
	if d.Suppress {
		return m.mutedResult(core.CategoryMail, player, d, "command-mute-cannot-send-mail")
	}

	c.SetPendingMail(ev.DraftRef)
	return Result{Decision: d}
}

// SendMail moderates the body of the pending draft and clears it
func (m *Moderator) SendMail(ctx context.Context, ev MailEvent) MailResult {
	player := ev.Player

	c, ready := m.ready(core.CategoryMail, player)
	if !ready {
		return MailResult{Result: Result{Cancelled: true, Silent: true, Reason: core.ReasonNotReady}, Body: ev.Body}
	}

	mctx := core.NewContext(player, c, core.CategoryMail)
	d := m.gate.Decide(core.CategoryMail, mctx)
	if d.Suppress {
		return MailResult{Result: m.mutedResult(core.CategoryMail, player, d, "command-mute-cannot-send-mail"), Body: ev.Body}
	}

	eval, err := m.engine.Evaluate(ctx, core.CategoryMail, mctx, ev.Body, rules.MailMode())
	if res, ok := m.cancelled(core.CategoryMail, player, err); ok {
		res.Decision = d
		return MailResult{Result: res, Body: ev.Body}
	}

	c.SetPendingMail("")
	res := Result{Silent: eval.CancelledSilently, Decision: d}
	m.dispatch(core.CategoryMail, mctx, eval.Outcome, eval.Lines)

	eventCount.WithLabelValues(string(core.CategoryMail), outcomeOf(res)).Inc()
	return MailResult{Result: res, Body: eval.Lines}
}

// DropItem discards the mail draft when its book is dropped
func (m *Moderator) DropItem(ev DropEvent) InteractResult {
	if !ev.HoldsDraft {
		return InteractResult{}
	}
	return m.discardDraft(ev.Player)
}

// InventoryClick discards the mail draft when its book is clicked or carried
func (m *Moderator) InventoryClick(ev ClickEvent) InteractResult {
	if !ev.CursorDraft && !ev.ClickedDraft {
		return InteractResult{}
	}
	return m.discardDraft(ev.Player)
}

func (m *Moderator) discardDraft(player core.Player) InteractResult {
	if c, ok := m.sessions.Lookup(player.ID()); ok {
		c.SetPendingMail("")
	}
	m.notify(player, core.NotifyInfo, "command-mail-draft-discarded")
	// queued from the dispatch thread, so it must not block on the task queue
	m.sched.RunLater(1, func() {
		m.world.UpdateInventory(player)
	})

	eventCount.WithLabelValues(string(core.CategoryMail), "discarded").Inc()
	return InteractResult{
		Result:    Result{Cancelled: true, Reason: core.ReasonMailDraftDropped},
		ClearItem: true,
	}
}

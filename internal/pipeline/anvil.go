package pipeline

import (
	"context"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
)

// Rename moderates the display name of an item renamed in an anvil. A name
// that ends up empty cancels the rename silently.
func (m *Moderator) Rename(ctx context.Context, ev RenameEvent) RenameResult {
	player := ev.Player

	c, ready := m.ready(core.CategoryAnvilRename, player)
	if !ready {
		return RenameResult{Name: ev.Name}
	}

	mctx := core.NewContext(player, c, core.CategoryAnvilRename)
	applyColors := m.settings.ColorsApplyOn[core.SurfaceAnvil]
	if applyColors {
		m.warner.Info("anvil-colors", "Applying rules to anvil renames, give players chatguard.color.anvil to allow colors on items")
	}

	d := m.gate.Decide(core.CategoryAnvilRename, mctx)
	if d.Suppress {
		return RenameResult{Result: m.mutedResult(core.CategoryAnvilRename, player, d, "command-mute-cannot-rename-items"), Name: ev.Name}
	}

	eval, err := m.engine.Evaluate(ctx, core.CategoryAnvilRename, mctx, []string{ev.Name}, rules.RenameMode(applyColors))
	if res, ok := m.cancelled(core.CategoryAnvilRename, player, err); ok {
		res.Decision = d
		return RenameResult{Result: res, Name: ev.Name}
	}

	name := eval.Line(0)
	res := Result{Silent: eval.CancelledSilently, Decision: d}
	m.dispatch(core.CategoryAnvilRename, mctx, eval.Outcome, []string{name})

	eventCount.WithLabelValues(string(core.CategoryAnvilRename), outcomeOf(res)).Inc()
	return RenameResult{Result: res, Name: name}
}

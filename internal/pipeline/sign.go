package pipeline

import (
	"context"
	"strings"

	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
	"go.uber.org/zap"
)

// revertDelay is the number of ticks before a silently cancelled sign is
// shown unchanged to its author, so it lands after the server wrote the sign
const revertDelay = 2

// Sign moderates the lines of an edited sign. Blank signs are left alone and
// never become the previous text of the duplicate check.
func (m *Moderator) Sign(ctx context.Context, ev SignEvent) SignResult {
	player := ev.Player

	c, ready := m.ready(core.CategorySign, player)
	if !ready || strings.Join(ev.Lines, "") == "" {
		return SignResult{Lines: ev.Lines}
	}

	lines := make([]string, rules.SignLines)
	for i := 0; i < len(lines) && i < len(ev.Lines); i++ {
		lines[i] = rules.Limit(ev.Lines[i], rules.SignMaxInputLength)
	}

	mctx := core.NewContext(player, c, core.CategorySign)

	if err := m.gate.CheckDuplicateSign(player, c, lines); err != nil {
		res, _ := m.cancelled(core.CategorySign, player, err)
		return SignResult{Result: res, Lines: lines}
	}

	d := m.gate.Decide(core.CategorySign, mctx)
	if d.Suppress {
		return SignResult{Result: m.mutedResult(core.CategorySign, player, d, "command-mute-cannot-place-signs"), Lines: lines}
	}

	mode := rules.SignMode(m.settings.SignCheckMode, m.settings.ColorsApplyOn[core.SurfaceSign])
	eval, err := m.engine.Evaluate(ctx, core.CategorySign, mctx, lines, mode)
	if res, ok := m.cancelled(core.CategorySign, player, err); ok {
		res.Decision = d
		return SignResult{Result: res, Lines: lines}
	}

	res := Result{Silent: eval.CancelledSilently, Decision: d}
	if eval.CancelledSilently {
		m.scheduleRevert(player, ev.Location, ev.Material, eval.Input)
	}

	if m.world.IsSign(ev.Location) {
		m.dispatch(core.CategorySign, mctx, eval.Outcome, eval.Lines)
	}

	eventCount.WithLabelValues(string(core.CategorySign), outcomeOf(res)).Inc()
	return SignResult{Result: res, Lines: eval.Lines}
}

// scheduleRevert shows the submitted lines back to the author only. The
// write is skipped when the block changed in the meantime.
func (m *Moderator) scheduleRevert(player core.Player, loc core.Location, material string, lines []string) {
	original := append([]string(nil), lines...)

	m.sched.RunLater(revertDelay, func() {
		if current := m.world.BlockMaterial(loc); current != material {
			m.logger.Debug("Skipping sign revert, block changed",
				zap.String("player", player.Name()),
				zap.String("expected", material),
				zap.String("current", current))
			return
		}
		m.world.SendSignChange(player, loc, original)
	})
}

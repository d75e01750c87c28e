// Package rules evaluates player text against the ordered rule list and
// merges the per-fragment outcomes.
package rules

import (
	"context"
	"strings"

	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// Evaluation is the merged result of one Evaluate call
type Evaluation struct {
	core.Outcome

	// Input holds the fragments after the length guard, before any rule ran
	Input []string
	// Lines holds the final slot contents
	Lines []string
	// Changed marks slots rewritten by a rule
	Changed []bool
}

// Line returns slot i of the final lines, empty when out of range
func (e Evaluation) Line(i int) string {
	if i < 0 || i >= len(e.Lines) {
		return ""
	}
	return e.Lines[i]
}

// Engine runs rules in their configured order. The rule list is copied on
// construction and never mutated, so one Engine is shared by all sessions.
type Engine struct {
	rules    []core.Rule
	stripper core.ColorStripper
	logger   *zap.Logger
}

// NewEngine creates a new rule engine
func NewEngine(rules []core.Rule, stripper core.ColorStripper, logger *zap.Logger) *Engine {
	return &Engine{
		rules:    append([]core.Rule(nil), rules...),
		stripper: stripper,
		logger:   logger,
	}
}

// RuleCount returns the number of loaded rules
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Check evaluates a single fragment. Every applicable rule runs, flags are
// OR-ed and each rewrite sees the output of the previous one.
func (e *Engine) Check(ctx context.Context, category core.Category, mctx *core.Context, text string) (core.Outcome, error) {
	out := core.Outcome{Text: text}

	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.AppliesTo(category) {
			continue
		}

		matched, err := rule.Matcher.Match(ctx, out.Text)
		if err != nil {
			e.logger.Warn("Rule matcher failed, treating as no match",
				zap.String("rule", rule.Name),
				zap.String("category", string(category)),
				zap.Error(err))
			continue
		}
		if !matched {
			continue
		}

		ruleMatchCount.WithLabelValues(rule.Name, string(category)).Inc()
		e.logger.Debug("Rule matched",
			zap.String("rule", rule.Name),
			zap.String("category", string(category)),
			zap.String("author", authorName(mctx)))

		if rule.Deny {
			return out, &core.CancelledError{
				Reason:     core.ReasonRule,
				Rule:       rule.Name,
				MessageKey: rule.WarnKey,
			}
		}

		out.CancelledSilently = out.CancelledSilently || rule.CancelSilently
		out.LoggingIgnored = out.LoggingIgnored || rule.IgnoreLogging
		out.SpyingIgnored = out.SpyingIgnored || rule.IgnoreSpying

		if rule.HasRewrite {
			out.Text = rule.Matcher.Replace(out.Text, rule.Rewrite)
		}
	}

	out.TextChanged = out.Text != text
	return out, nil
}

// Evaluate runs the rules over fragments using the fragmentation policy of mode.
// A *core.CancelledError is returned when a rule denies the action or when a
// rename collapses to nothing.
func (e *Engine) Evaluate(ctx context.Context, category core.Category, mctx *core.Context, fragments []string, mode Mode) (Evaluation, error) {
	slots := mode.Slots
	if slots <= 0 {
		slots = len(fragments)
	}

	input := make([]string, slots)
	for i := 0; i < slots && i < len(fragments); i++ {
		input[i] = Limit(fragments[i], mode.MaxInputLength)
	}

	lines := append([]string(nil), input...)
	changed := make([]bool, slots)
	merged := core.Outcome{}
	author := authorOf(mctx)

	if mode.WholeText && slots > 0 {
		joined := e.stripper.Strip(strings.Join(lines, " "), author, mode.Surface)

		out, err := e.Check(ctx, category, mctx, joined)
		if err != nil {
			return Evaluation{Input: input, Lines: input, Changed: changed}, err
		}
		merged = merged.Merge(out)

		if out.TextChanged {
			// slot boundaries are lost here, the rewritten text is re-flowed
			lines = SplitSlots(strings.TrimSpace(out.Text), slots, mode.SlotWidth)
			for i := range changed {
				changed[i] = true
			}
		}
	}

	if mode.PerLine {
		for i := range lines {
			if changed[i] {
				continue
			}
			line := e.stripper.Strip(lines[i], author, mode.Surface)

			out, err := e.Check(ctx, category, mctx, line)
			if err != nil {
				return Evaluation{Input: input, Lines: input, Changed: make([]bool, slots)}, err
			}
			merged = merged.Merge(out)

			if out.TextChanged {
				lines[i] = Limit(out.Text, mode.SlotWidth)
				changed[i] = true
			}
		}
	}

	if mode.ApplyColors {
		for i := range lines {
			if !changed[i] {
				lines[i] = e.stripper.Strip(lines[i], author, mode.Surface)
			}
		}
	}

	if mode.RejectEmpty {
		for i := range lines {
			if !changed[i] && !mode.ApplyColors {
				continue
			}
			lines[i] = strings.TrimSpace(lines[i])
			if strings.TrimSpace(e.stripper.StripAll(lines[i])) == "" {
				return Evaluation{Input: input, Lines: input, Changed: make([]bool, slots)}, &core.CancelledError{
					Silent: true,
					Reason: core.ReasonRewriteEmpty,
				}
			}
		}
	}

	merged.TextChanged = false
	for _, c := range changed {
		merged.TextChanged = merged.TextChanged || c
	}
	merged.Text = strings.Join(lines, "\n")

	return Evaluation{
		Outcome: merged,
		Input:   input,
		Lines:   lines,
		Changed: changed,
	}, nil
}

func authorOf(mctx *core.Context) core.Player {
	if mctx == nil {
		return nil
	}
	return mctx.Author
}

func authorName(mctx *core.Context) string {
	if a := authorOf(mctx); a != nil {
		return a.Name()
	}
	return ""
}

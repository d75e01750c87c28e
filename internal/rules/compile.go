package rules

import (
	"errors"
	"fmt"

	"github.com/mikey/chatguard/internal/core"
)

// Definition is a rule as written in configuration
type Definition struct {
	Name           string   `mapstructure:"name"`
	Match          string   `mapstructure:"match"`
	Type           string   `mapstructure:"type"`
	Prompt         string   `mapstructure:"prompt"`
	Categories     []string `mapstructure:"categories"`
	Replace        *string  `mapstructure:"replace"`
	CancelSilently bool     `mapstructure:"cancel_silently"`
	IgnoreLogging  bool     `mapstructure:"ignore_logging"`
	IgnoreSpying   bool     `mapstructure:"ignore_spying"`
	Deny           bool     `mapstructure:"deny"`
	Warn           string   `mapstructure:"warn"`
}

// DefaultDenyKey is the lang key sent for deny rules without their own warning
const DefaultDenyKey = "checker-rule-denied"

var errMissingPrompt = errors.New("classifier rules need a prompt")

// MatcherBuilder creates the matcher of non-regex rule types
type MatcherBuilder func(def Definition) (core.Matcher, error)

// Compile turns configured definitions into rules, keeping their order.
// Definitions with type "classifier" are built with classifier, which may be
// nil when no LLM provider is configured.
func Compile(defs []Definition, classifier MatcherBuilder) ([]core.Rule, error) {
	out := make([]core.Rule, 0, len(defs))

	for i, def := range defs {
		name := def.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}

		var matcher core.Matcher
		switch def.Type {
		case "", "regex":
			if def.Match == "" {
				return nil, fmt.Errorf("rule %s: match pattern is required", name)
			}
			m, err := NewRegexMatcher(def.Match)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", name, err)
			}
			matcher = m
		case "classifier":
			if classifier == nil {
				return nil, fmt.Errorf("rule %s: classifier rules need an llm provider", name)
			}
			m, err := classifier(def)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", name, err)
			}
			matcher = m
		default:
			return nil, fmt.Errorf("rule %s: unsupported rule type: %s", name, def.Type)
		}

		categories := make([]core.Category, 0, len(def.Categories))
		for _, raw := range def.Categories {
			c, ok := core.ParseCategory(raw)
			if !ok {
				return nil, fmt.Errorf("rule %s: unknown category: %s", name, raw)
			}
			categories = append(categories, c)
		}

		rule := core.Rule{
			Name:           name,
			Matcher:        matcher,
			Categories:     categories,
			CancelSilently: def.CancelSilently,
			IgnoreLogging:  def.IgnoreLogging,
			IgnoreSpying:   def.IgnoreSpying,
			Deny:           def.Deny,
			WarnKey:        def.Warn,
		}
		if rule.Deny && rule.WarnKey == "" {
			rule.WarnKey = DefaultDenyKey
		}
		if def.Replace != nil {
			rule.Rewrite = *def.Replace
			rule.HasRewrite = true
		}
		out = append(out, rule)
	}

	return out, nil
}

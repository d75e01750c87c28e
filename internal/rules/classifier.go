package rules

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mikey/chatguard/internal/core"
	"go.uber.org/zap"
)

// ClassifierSettings tunes classifier rules
type ClassifierSettings struct {
	// Threshold is the minimum score for a verdict to count as a match
	Threshold float64
	// CacheSize bounds the number of remembered verdicts per rule
	CacheSize int
	// CacheTTL is how long a verdict is reused for the same text
	CacheTTL time.Duration
	// Timeout bounds a single classifier call
	Timeout time.Duration
}

// ClassifierMatcher matches text by asking a language model whether it
// follows an instruction. A matched text is replaced as a whole.
type ClassifierMatcher struct {
	classifier  core.Classifier
	instruction string
	settings    ClassifierSettings
	verdicts    *expirable.LRU[string, bool]
	logger      *zap.Logger
}

// NewClassifierMatcher creates a matcher for one rule instruction
func NewClassifierMatcher(classifier core.Classifier, instruction string, settings ClassifierSettings, logger *zap.Logger) *ClassifierMatcher {
	if settings.CacheSize <= 0 {
		settings.CacheSize = 1024
	}
	return &ClassifierMatcher{
		classifier:  classifier,
		instruction: instruction,
		settings:    settings,
		verdicts:    expirable.NewLRU[string, bool](settings.CacheSize, nil, settings.CacheTTL),
		logger:      logger,
	}
}

// Match asks the classifier, reusing a cached verdict for the same text
func (m *ClassifierMatcher) Match(ctx context.Context, text string) (bool, error) {
	if matched, ok := m.verdicts.Get(text); ok {
		classifierCacheCount.WithLabelValues("hit").Inc()
		return matched, nil
	}
	classifierCacheCount.WithLabelValues("miss").Inc()

	if m.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.settings.Timeout)
		defer cancel()
	}

	verdict, err := m.classifier.Classify(ctx, m.instruction, text)
	if err != nil {
		return false, err
	}

	matched := verdict.Matches && verdict.Score >= m.settings.Threshold
	m.logger.Debug("Classifier verdict",
		zap.Bool("matched", matched),
		zap.Float64("score", verdict.Score),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("model", verdict.ModelUsed),
		zap.String("explanation", verdict.Explanation))

	m.verdicts.Add(text, matched)
	return matched, nil
}

// Replace swaps the whole text, a model cannot point at the offending part
func (m *ClassifierMatcher) Replace(_ string, replacement string) string {
	return replacement
}

// ClassifierBuilder returns a MatcherBuilder creating classifier matchers
// from the prompt of each definition
func ClassifierBuilder(classifier core.Classifier, settings ClassifierSettings, logger *zap.Logger) MatcherBuilder {
	return func(def Definition) (core.Matcher, error) {
		instruction := def.Prompt
		if instruction == "" {
			instruction = def.Match
		}
		if instruction == "" {
			return nil, errMissingPrompt
		}
		return NewClassifierMatcher(classifier, instruction, settings, logger.With(zap.String("rule", def.Name))), nil
	}
}

package rules

import (
	"context"
	"fmt"
	"regexp"
)

// RegexMatcher matches text against a regular expression
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles pattern. Patterns are case-insensitive unless they
// set their own flags.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	if len(pattern) < 2 || pattern[:2] != "(?" {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule pattern: %w", err)
	}
	return &RegexMatcher{re: re}, nil
}

// Match reports whether the pattern occurs in text
func (m *RegexMatcher) Match(_ context.Context, text string) (bool, error) {
	return m.re.MatchString(text), nil
}

// Replace substitutes every match, expanding $1 style group references
func (m *RegexMatcher) Replace(text, replacement string) string {
	return m.re.ReplaceAllString(text, replacement)
}

// String returns the compiled pattern
func (m *RegexMatcher) String() string {
	return m.re.String()
}

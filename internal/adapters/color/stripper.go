// Package color removes legacy color and format codes from player text.
package color

import (
	"regexp"

	"github.com/mikey/chatguard/internal/core"
	"golang.org/x/text/unicode/norm"
)

// DefaultPermissionPrefix is prepended to the surface name to build the color permission
const DefaultPermissionPrefix = "chatguard.color."

// codePattern matches "§a", "&l" and "&#ff00aa" style codes
var codePattern = regexp.MustCompile(`(?i)[§&](?:#[0-9a-f]{6}|[0-9a-fk-orx])`)

// Stripper is the default core.ColorStripper
type Stripper struct {
	permissionPrefix string
}

// NewStripper creates a new stripper. An empty prefix uses DefaultPermissionPrefix.
func NewStripper(permissionPrefix string) *Stripper {
	if permissionPrefix == "" {
		permissionPrefix = DefaultPermissionPrefix
	}
	return &Stripper{permissionPrefix: permissionPrefix}
}

// Permission returns the permission that allows colors on surface
func (s *Stripper) Permission(surface core.Surface) string {
	return s.permissionPrefix + string(surface)
}

// Strip removes codes the author may not use on surface. Text is NFC
// normalized either way so the result is stable under repeated calls.
func (s *Stripper) Strip(text string, author core.Player, surface core.Surface) string {
	if author != nil && author.HasPermission(s.Permission(surface)) {
		return norm.NFC.String(text)
	}
	return s.StripAll(text)
}

// StripAll removes every code. Removal repeats until nothing matches, since
// dropping one code can join its neighbours into a new one ("§§aa").
func (s *Stripper) StripAll(text string) string {
	out := norm.NFC.String(text)
	for {
		next := codePattern.ReplaceAllString(out, "")
		if next == out {
			break
		}
		out = next
	}
	return norm.NFC.String(out)
}

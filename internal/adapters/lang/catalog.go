// Package lang resolves the localized messages sent to players.
package lang

import (
	"github.com/mikey/chatguard/internal/config"
)

// Defaults are the built-in messages, overridden by lang.<key> in configuration
var Defaults = map[string]string{
	"checker-sign-duplication":         "&cPlease do not place signs with the same text repeatedly.",
	"command-mail-draft-discarded":     "&7Your mail draft was discarded.",
	"command-mute-cannot-chat":         "&cYou cannot chat while muted.",
	"command-mute-cannot-place-signs":  "&cYou cannot place signs while muted.",
	"command-mute-cannot-rename-items": "&cYou cannot rename items while muted.",
	"command-mute-cannot-send-mail":    "&cYou cannot send mail while muted.",
	"player-kick-disallowed-nickname":  "&cYour nickname is not allowed on this server.",
	"checker-rule-denied":              "&cYour message was blocked.",
}

// Catalog is the configuration backed core.Lang
type Catalog struct {
	cfg *config.Config
}

// NewCatalog creates a new catalog
func NewCatalog(cfg *config.Config) *Catalog {
	return &Catalog{cfg: cfg}
}

// Resolve returns the message for key. Unknown keys are returned as is so
// rules may carry literal warnings.
func (c *Catalog) Resolve(key string) string {
	if c.cfg != nil {
		if s := c.cfg.GetString("lang." + key); s != "" {
			return s
		}
	}
	if s, ok := Defaults[key]; ok {
		return s
	}
	return key
}

// Package mute decides whether an action is withheld because the server or
// its author is muted.
package mute

import (
	"sync/atomic"
	"time"

	"github.com/mikey/chatguard/internal/core"
)

const (
	// BypassPermission exempts a player from every mute
	BypassPermission = "chatguard.bypass.mute"
	// SignDuplicationBypassPermission allows placing the same sign text twice
	SignDuplicationBypassPermission = "chatguard.bypass.sign_duplication"
)

// Settings selects which categories react to a mute
type Settings struct {
	HideJoins  bool
	HideQuits  bool
	HideDeaths bool

	PreventChat  bool
	PreventSigns bool
	PreventAnvil bool
	PreventMail  bool

	// SoftHide keeps broadcasting lifecycle messages of muted players while
	// the mute is still recorded in the Decision
	SoftHide bool

	BlockSameTextSigns bool
}

// Decision is the auditable result of a mute check
type Decision struct {
	Category core.Category `json:"category"`
	// Muted is set when a mute is active and the category reacts to it
	Muted bool `json:"muted"`
	// Suppress is set when the action must not be shown
	Suppress bool `json:"suppress"`
	// Vanished is set when a broadcast was suppressed for a vanished author
	Vanished bool `json:"vanished,omitempty"`
}

// Gate evaluates mute state. It is safe for concurrent use.
type Gate struct {
	settings    Settings
	serverMuted atomic.Bool
	now         func() time.Time
}

// NewGate creates a new mute gate
func NewGate(settings Settings) *Gate {
	return &Gate{
		settings: settings,
		now:      time.Now,
	}
}

// Settings returns the gate settings
func (g *Gate) Settings() Settings {
	return g.settings
}

// SetServerMuted switches the server-wide mute
func (g *Gate) SetServerMuted(muted bool) {
	g.serverMuted.Store(muted)
}

// ServerMuted reports whether the server-wide mute is on
func (g *Gate) ServerMuted() bool {
	return g.serverMuted.Load()
}

// IsSomethingMuted reports whether the server or the author is muted. Holders
// of BypassPermission are never muted.
func (g *Gate) IsSomethingMuted(mctx *core.Context) bool {
	if mctx != nil && mctx.Author != nil && mctx.Author.HasPermission(BypassPermission) {
		return false
	}
	if g.ServerMuted() {
		return true
	}
	if mctx == nil || mctx.Session == nil || !mctx.Session.IsReady() {
		return false
	}
	return mctx.Session.Data().IsMuted(g.now())
}

func (g *Gate) enabled(category core.Category) bool {
	switch category {
	case core.CategoryJoin:
		return g.settings.HideJoins
	case core.CategoryQuit, core.CategoryKick:
		return g.settings.HideQuits
	case core.CategoryDeath:
		return g.settings.HideDeaths
	case core.CategoryChat:
		return g.settings.PreventChat
	case core.CategorySign:
		return g.settings.PreventSigns
	case core.CategoryAnvilRename:
		return g.settings.PreventAnvil
	case core.CategoryMail:
		return g.settings.PreventMail
	}
	return false
}

// Decide evaluates the mute for category. Broadcast categories honour
// SoftHide and vanish, the others are suppressed whenever muted.
func (g *Gate) Decide(category core.Category, mctx *core.Context) Decision {
	d := Decision{Category: category}
	d.Muted = g.enabled(category) && g.IsSomethingMuted(mctx)

	if !category.IsBroadcast() {
		d.Suppress = d.Muted
		return d
	}

	d.Suppress = d.Muted && !g.settings.SoftHide
	if mctx != nil && mctx.Author != nil && mctx.Author.IsVanished() {
		d.Suppress = true
		d.Vanished = true
	}
	return d
}

// ShouldSuppress reports whether category must be withheld for mctx
func (g *Gate) ShouldSuppress(category core.Category, mctx *core.Context) bool {
	return g.Decide(category, mctx).Suppress
}

// SignCache is the part of the session cache used by the duplicate check
type SignCache interface {
	IsDuplicateSign(lines []string) bool
	SetLastSignText(lines []string)
}

// CheckDuplicateSign cancels visibly when lines repeat the author's previous
// sign, otherwise remembers them. Nothing happens when the check is disabled
// or the author may bypass it.
func (g *Gate) CheckDuplicateSign(author core.Player, cache SignCache, lines []string) error {
	if !g.settings.BlockSameTextSigns {
		return nil
	}
	if author != nil && author.HasPermission(SignDuplicationBypassPermission) {
		return nil
	}
	if cache.IsDuplicateSign(lines) {
		return &core.CancelledError{
			Reason:     core.ReasonDuplicateSign,
			MessageKey: "checker-sign-duplication",
		}
	}
	cache.SetLastSignText(lines)
	return nil
}

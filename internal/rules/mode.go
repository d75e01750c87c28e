package rules

import (
	"github.com/mikey/chatguard/internal/core"
)

const (
	// SignLines is the number of lines on a sign
	SignLines = 4
	// SignSlotWidth is the display width of one rewritten sign line
	SignSlotWidth = 15
	// SignMaxInputLength bounds submitted sign lines before evaluation. This
	// protects the renderer and is applied regardless of rule outcome.
	SignMaxInputLength = 49
)

// Sign check modes as found in configuration
const (
	SignCheckWholeText = 1
	SignCheckPerLine   = 2
	SignCheckBoth      = 3
)

// Mode describes how fragments are fed to the rules and written back
type Mode struct {
	// WholeText joins all fragments with a space and evaluates them once
	WholeText bool
	// PerLine evaluates each fragment on its own
	PerLine bool

	// Slots is the number of output slots, 0 means one per fragment
	Slots int
	// SlotWidth limits rewritten slots in runes, 0 means unlimited
	SlotWidth int
	// MaxInputLength truncates fragments before evaluation, 0 means unlimited
	MaxInputLength int

	// ApplyColors writes stripped text back into unchanged slots
	ApplyColors bool
	// RejectEmpty cancels silently when the result is empty once trimmed and stripped
	RejectEmpty bool

	Surface core.Surface
}

// ChatMode evaluates a single chat message, which may not end up empty
func ChatMode() Mode {
	return Mode{
		PerLine:     true,
		ApplyColors: true,
		RejectEmpty: true,
		Surface:     core.SurfaceChat,
	}
}

// SignMode builds the sign mode for a configured check mode (1, 2 or 3).
// Unknown values fall back to checking both.
func SignMode(checkMode int, applyColors bool) Mode {
	m := Mode{
		Slots:          SignLines,
		SlotWidth:      SignSlotWidth,
		MaxInputLength: SignMaxInputLength,
		ApplyColors:    applyColors,
		Surface:        core.SurfaceSign,
	}
	switch checkMode {
	case SignCheckWholeText:
		m.WholeText = true
	case SignCheckPerLine:
		m.PerLine = true
	default:
		m.WholeText = true
		m.PerLine = true
	}
	return m
}

// RenameMode evaluates an item display name
func RenameMode(applyColors bool) Mode {
	return Mode{
		PerLine:     true,
		ApplyColors: applyColors,
		RejectEmpty: true,
		Surface:     core.SurfaceAnvil,
	}
}

// MailMode evaluates mail bodies line by line
func MailMode() Mode {
	return Mode{
		PerLine:     true,
		ApplyColors: true,
		Surface:     core.SurfaceChat,
	}
}

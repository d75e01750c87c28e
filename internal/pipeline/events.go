package pipeline

import (
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/mute"
)

// PreLoginEvent is sent before a player connection is accepted
type PreLoginEvent struct {
	ID   core.PlayerID
	Name string
}

// JoinEvent is sent once a player entered the world
type JoinEvent struct {
	Player  core.Player
	Message string
	// RemoteJoinPending is set when another server of the network announces the join
	RemoteJoinPending bool
}

// LeaveEvent is sent when a player disconnects
type LeaveEvent struct {
	Player  core.Player
	Message string
}

// KickEvent is sent when the server is about to kick a player
type KickEvent struct {
	Player  core.Player
	Reason  string
	Message string
}

// DeathEvent is sent when a player died
type DeathEvent struct {
	Player  core.Player
	Message string
	// Minigame is set when the player died inside an arena
	Minigame bool
}

// ChatEvent carries one chat message
type ChatEvent struct {
	Player  core.Player
	Message string
}

// SignEvent is sent when a player finished editing a sign
type SignEvent struct {
	Player   core.Player
	Location core.Location
	Material string
	Lines    []string
}

// RenameEvent is sent when a player takes a renamed item out of an anvil
type RenameEvent struct {
	Player core.Player
	Name   string
}

// MailEvent is sent when a player starts or sends a mail draft
type MailEvent struct {
	Player    core.Player
	DraftRef  string
	Recipient string
	Body      []string
}

// DropEvent is sent when a player drops an item
type DropEvent struct {
	Player     core.Player
	HoldsDraft bool
}

// ClickEvent is sent when a player clicks in an inventory
type ClickEvent struct {
	Player       core.Player
	CursorDraft  bool
	ClickedDraft bool
}

// Result is the moderation verdict shared by every event
type Result struct {
	// Cancelled asks the server to cancel the underlying event
	Cancelled bool `json:"cancelled"`
	// Silent is set when the action is vetoed without the author noticing:
	// their own view is kept while others get the moderated version
	Silent bool   `json:"silent"`
	Reason string `json:"reason,omitempty"`
	Rule   string `json:"rule,omitempty"`
	// Decision records the mute determination even when nothing was suppressed
	Decision mute.Decision `json:"decision"`
}

// LoginResult tells whether a connection may proceed
type LoginResult struct {
	Allowed     bool   `json:"allowed"`
	KickMessage string `json:"kick_message,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// MessageResult is returned for join, quit, kick and death events
type MessageResult struct {
	Result
	// Message is the vanilla message the server should still show
	Message string `json:"message"`
	// ClearMessage asks the server to hide its vanilla message
	ClearMessage bool `json:"clear_message"`
	// LoadDeferred is set when the session load waits for authentication
	LoadDeferred bool `json:"load_deferred,omitempty"`
}

// ChatResult carries the moderated chat message
type ChatResult struct {
	Result
	Text string `json:"text"`
}

// SignResult carries the lines to write on the sign
type SignResult struct {
	Result
	Lines []string `json:"lines"`
}

// RenameResult carries the item name to apply
type RenameResult struct {
	Result
	Name string `json:"name"`
}

// MailResult carries the moderated mail body
type MailResult struct {
	Result
	Body []string `json:"body"`
}

// InteractResult is returned for item drops and inventory clicks
type InteractResult struct {
	Result
	// ClearItem asks the server to remove the draft item involved
	ClearItem bool `json:"clear_item"`
}

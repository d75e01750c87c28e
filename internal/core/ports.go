package core

import (
	"context"
)

// SessionLoader fetches persisted player data, possibly over a slow network store
type SessionLoader interface {
	// Load retrieves the session data for a player
	Load(ctx context.Context, id PlayerID) (*SessionData, error)
}

// SessionStore is a SessionLoader that can also persist data
type SessionStore interface {
	SessionLoader

	// Save stores the session data for a player
	Save(ctx context.Context, data *SessionData) error
}

// Matcher decides whether a rule applies to a piece of text
type Matcher interface {
	// Match reports whether the text matches
	Match(ctx context.Context, text string) (bool, error)

	// Replace rewrites the matched parts of text with replacement
	Replace(text, replacement string) string
}

// ColorStripper removes color codes the author is not allowed to use
type ColorStripper interface {
	// Strip removes unauthorized codes for the surface. Must be idempotent.
	Strip(text string, author Player, surface Surface) string

	// StripAll removes every color code regardless of permissions
	StripAll(text string) string
}

// Lang resolves localized strings
type Lang interface {
	Resolve(key string) string
}

// BroadcastSink shows moderated text to other players
type BroadcastSink interface {
	Broadcast(category Category, mctx *Context, text string)
}

// SpySink mirrors moderated content to privileged observers
type SpySink interface {
	Mirror(category Category, mctx *Context, payload []string)
}

// LogSink records moderated content for auditing
type LogSink interface {
	Record(category Category, mctx *Context, payload []string)
}

// CommandDispatcher runs commands as the server console
type CommandDispatcher interface {
	RunConsoleCommand(command string)
}

// Notifier sends visible feedback to a single player
type Notifier interface {
	Notify(player Player, level NotifyLevel, text string)
}

// World is the part of the game world the pipeline needs to re-verify state
type World interface {
	// BlockMaterial returns the material currently at loc, empty when unknown
	BlockMaterial(loc Location) string

	// IsSign reports whether the block at loc is still a sign
	IsSign(loc Location) bool

	// SendSignChange shows lines at loc to player only
	SendSignChange(player Player, loc Location, lines []string)

	// UpdateInventory refreshes the player's client inventory
	UpdateInventory(player Player)
}

// PermissionLookup resolves permissions for players that are not connected yet
type PermissionLookup interface {
	HasOfflinePermission(id PlayerID, perm string) bool
}

// Scheduler runs work on the event dispatch thread
type Scheduler interface {
	// Run queues task on the dispatch thread
	Run(task func())

	// RunLater queues task after the given number of dispatch ticks
	RunLater(ticks int, task func())

	// RunAsync runs task off the dispatch thread
	RunAsync(task func())
}

// Classifier asks a language model whether text matches an instruction
type Classifier interface {
	Classify(ctx context.Context, instruction, text string) (*Verdict, error)
}

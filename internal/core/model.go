package core

import (
	"time"
)

// Category identifies the kind of player action being moderated
type Category string

const (
	CategoryChat        Category = "chat"
	CategorySign        Category = "sign"
	CategoryAnvilRename Category = "anvil"
	CategoryJoin        Category = "join"
	CategoryQuit        Category = "quit"
	CategoryKick        Category = "kick"
	CategoryDeath       Category = "death"
	CategoryMail        Category = "mail"
)

// Categories lists every known category in a stable order
var Categories = []Category{
	CategoryChat,
	CategorySign,
	CategoryAnvilRename,
	CategoryJoin,
	CategoryQuit,
	CategoryKick,
	CategoryDeath,
	CategoryMail,
}

// IsBroadcast reports whether the category is a lifecycle message shown to other players
func (c Category) IsBroadcast() bool {
	switch c {
	case CategoryJoin, CategoryQuit, CategoryKick, CategoryDeath:
		return true
	}
	return false
}

// ParseCategory converts a configuration value into a Category
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Surface is where colored text ends up, used to resolve color permissions
type Surface string

const (
	SurfaceChat  Surface = "chat"
	SurfaceSign  Surface = "sign"
	SurfaceAnvil Surface = "anvil"
)

// PlayerID is the stable unique id of a player (uuid)
type PlayerID string

// Location is an opaque block or player position supplied by the game server
type Location struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// Player is the connection-side view of an author. Implementations belong to
// the game server integration and are never owned by the moderation core.
type Player interface {
	ID() PlayerID
	Name() string
	HasPermission(perm string) bool
	IsVanished() bool
	IsLoggedIn() bool
	Location() Location
}

// SessionData is the persisted part of a player's state
type SessionData struct {
	PlayerID   PlayerID
	Name       string
	MutedUntil time.Time
	FirstSeen  time.Time
	LastSeen   time.Time
	JoinCount  int
}

// IsMuted reports whether the player mute is still active at now
func (d *SessionData) IsMuted(now time.Time) bool {
	return d != nil && !d.MutedUntil.IsZero() && now.Before(d.MutedUntil)
}

// SessionState is the read side of a session cache handed to rules and gates
type SessionState interface {
	IsReady() bool
	Data() *SessionData
}

// Context wraps the author and their session for one evaluated action
type Context struct {
	Author   Player
	Session  SessionState
	Category Category
}

// NewContext creates a new moderation context
func NewContext(author Player, session SessionState, category Category) *Context {
	return &Context{
		Author:   author,
		Session:  session,
		Category: category,
	}
}

// Rule is an externally authored, immutable moderation rule
type Rule struct {
	Name       string
	Matcher    Matcher
	Categories []Category

	// Rewrite replaces the matched text when HasRewrite is set
	Rewrite    string
	HasRewrite bool

	CancelSilently bool
	IgnoreLogging  bool
	IgnoreSpying   bool

	// Deny cancels the action visibly, WarnKey is the optional lang key sent to the author
	Deny    bool
	WarnKey string
}

// AppliesTo reports whether the rule is enabled for the category
func (r *Rule) AppliesTo(c Category) bool {
	if len(r.Categories) == 0 {
		return true
	}
	for _, rc := range r.Categories {
		if rc == c {
			return true
		}
	}
	return false
}

// Outcome is the immutable result of evaluating rules against one fragment
type Outcome struct {
	Text              string
	CancelledSilently bool
	LoggingIgnored    bool
	SpyingIgnored     bool
	TextChanged       bool
}

// Merge combines two outcomes. Flags are OR-ed and the text of other wins,
// which keeps the operation associative.
func (o Outcome) Merge(other Outcome) Outcome {
	return Outcome{
		Text:              other.Text,
		CancelledSilently: o.CancelledSilently || other.CancelledSilently,
		LoggingIgnored:    o.LoggingIgnored || other.LoggingIgnored,
		SpyingIgnored:     o.SpyingIgnored || other.SpyingIgnored,
		TextChanged:       o.TextChanged || other.TextChanged,
	}
}

// NotifyLevel is the severity of feedback sent to a player
type NotifyLevel string

const (
	NotifyInfo  NotifyLevel = "info"
	NotifyWarn  NotifyLevel = "warn"
	NotifyError NotifyLevel = "error"
)

// Verdict is the answer of a text classifier for one rule
type Verdict struct {
	Matches     bool    `json:"matches"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	ModelUsed   string  `json:"-"`
}

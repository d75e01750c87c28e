package transport

import (
	"strings"
	"sync"

	"github.com/mikey/chatguard/internal/core"
)

// Sinks turns pipeline side effects into command frames
type Sinks struct {
	hub *Hub
}

// NewSinks creates sinks writing to hub
func NewSinks(hub *Hub) *Sinks {
	return &Sinks{hub: hub}
}

// Broadcast implements core.BroadcastSink
func (s *Sinks) Broadcast(category core.Category, mctx *core.Context, text string) {
	s.hub.Send(Command{
		Type:     TypeBroadcast,
		Category: category,
		PlayerID: authorID(mctx),
		Player:   authorName(mctx),
		Text:     text,
	})
}

// Mirror implements core.SpySink
func (s *Sinks) Mirror(category core.Category, mctx *core.Context, payload []string) {
	s.hub.Send(Command{
		Type:     TypeSpy,
		Category: category,
		PlayerID: authorID(mctx),
		Player:   authorName(mctx),
		Lines:    payload,
	})
}

// Notify implements core.Notifier
func (s *Sinks) Notify(player core.Player, level core.NotifyLevel, text string) {
	s.hub.Send(Command{
		Type:     TypeNotify,
		PlayerID: player.ID(),
		Player:   player.Name(),
		Level:    level,
		Text:     text,
	})
}

// RunConsoleCommand implements core.CommandDispatcher
func (s *Sinks) RunConsoleCommand(command string) {
	s.hub.Send(Command{Type: TypeConsoleCommand, Command: command})
}

func authorID(mctx *core.Context) core.PlayerID {
	if mctx == nil || mctx.Author == nil {
		return ""
	}
	return mctx.Author.ID()
}

func authorName(mctx *core.Context) string {
	if mctx == nil || mctx.Author == nil {
		return ""
	}
	return mctx.Author.Name()
}

// WorldView tracks the block materials the server reported and implements
// core.World on top of them
type WorldView struct {
	mu        sync.RWMutex
	materials map[core.Location]string
	hub       *Hub
}

// NewWorldView creates an empty view sending its commands through hub
func NewWorldView(hub *Hub) *WorldView {
	return &WorldView{
		materials: make(map[core.Location]string),
		hub:       hub,
	}
}

// SetBlock records the material at loc, an empty material forgets it
func (w *WorldView) SetBlock(loc core.Location, material string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if material == "" {
		delete(w.materials, loc)
		return
	}
	w.materials[loc] = material
}

// BlockMaterial implements core.World
func (w *WorldView) BlockMaterial(loc core.Location) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.materials[loc]
}

// IsSign implements core.World. Sign materials end in SIGN, as OAK_SIGN or
// WALL_HANGING_SIGN do.
func (w *WorldView) IsSign(loc core.Location) bool {
	return strings.HasSuffix(w.BlockMaterial(loc), "SIGN")
}

// SendSignChange implements core.World
func (w *WorldView) SendSignChange(player core.Player, loc core.Location, lines []string) {
	w.hub.Send(Command{
		Type:     TypeSignChange,
		PlayerID: player.ID(),
		Player:   player.Name(),
		Location: &loc,
		Lines:    lines,
	})
}

// UpdateInventory implements core.World
func (w *WorldView) UpdateInventory(player core.Player) {
	w.hub.Send(Command{
		Type:     TypeUpdateInventory,
		PlayerID: player.ID(),
		Player:   player.Name(),
	})
}

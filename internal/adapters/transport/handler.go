package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/chatguard/internal/pipeline"
	"go.uber.org/zap"
)

// Caller runs a task on the dispatch thread and waits for it
type Caller interface {
	Call(task func()) error
}

// Handler decodes inbound frames and runs them through the moderator on the
// dispatch thread
type Handler struct {
	caller Caller
	mod    *pipeline.Moderator
	world  *WorldView
	perms  *PermissionCache
	logger *zap.Logger
}

// NewHandler creates a new frame handler
func NewHandler(caller Caller, mod *pipeline.Moderator, world *WorldView, perms *PermissionCache, logger *zap.Logger) *Handler {
	return &Handler{
		caller: caller,
		mod:    mod,
		world:  world,
		perms:  perms,
		logger: logger,
	}
}

// HandleBytes decodes data, handles it and encodes the reply
func (h *Handler) HandleBytes(ctx context.Context, data []byte) []byte {
	var reply Reply
	f, err := DecodeFrame(data)
	if err != nil {
		frameCount.WithLabelValues("invalid", "error").Inc()
		reply = Reply{Type: TypeError, Error: err.Error()}
	} else {
		reply = h.Handle(ctx, f)
	}

	out, err := Encode(reply)
	if err != nil {
		h.logger.Error("Failed to encode reply", zap.Error(err))
		out, _ = Encode(Reply{ID: reply.ID, Type: TypeError, Error: "failed to encode reply"})
	}
	return out
}

// Handle runs one frame and returns its reply
func (h *Handler) Handle(ctx context.Context, f *Frame) Reply {
	result, err := h.handle(ctx, f)
	if err != nil {
		frameCount.WithLabelValues(f.Type, "error").Inc()
		h.logger.Warn("Failed to handle frame",
			zap.Uint64("id", f.ID),
			zap.String("type", f.Type),
			zap.Error(err))
		return Reply{ID: f.ID, Type: TypeError, Error: err.Error()}
	}

	frameCount.WithLabelValues(f.Type, "ok").Inc()
	return Reply{ID: f.ID, Type: TypeResult, Result: result}
}

var errMissingPlayer = errors.New("frame without player")

func (h *Handler) handle(ctx context.Context, f *Frame) (interface{}, error) {
	// Frames that do not carry a connected player
	switch f.Type {
	case TypePreLogin:
		if h.perms != nil {
			h.perms.Set(f.PlayerID, f.Permissions)
		}
		var res pipeline.LoginResult
		err := h.caller.Call(func() {
			res = h.mod.PreLogin(pipeline.PreLoginEvent{ID: f.PlayerID, Name: f.Name})
		})
		return res, err
	case TypePermissions:
		if h.perms == nil {
			return nil, fmt.Errorf("permission cache not configured")
		}
		h.perms.Set(f.PlayerID, f.Permissions)
		return struct{}{}, nil
	case TypeBlock:
		h.world.SetBlock(f.Location, f.Material)
		return struct{}{}, nil
	case TypeServerMute:
		err := h.caller.Call(func() { h.mod.SetServerMuted(f.Muted) })
		return struct{}{}, err
	case TypeMutePlayer:
		until := time.Time{}
		if f.Until > 0 {
			until = time.UnixMilli(f.Until)
		}
		var applied bool
		err := h.caller.Call(func() { applied = h.mod.MutePlayer(f.PlayerID, until) })
		return map[string]bool{"applied": applied}, err
	}

	if f.Player == nil || f.Player.ID == "" {
		return nil, errMissingPlayer
	}
	player := NewRemotePlayer(*f.Player)

	var result interface{}
	var run func()

	switch f.Type {
	case TypeJoin:
		if h.perms != nil {
			h.perms.Forget(player.ID())
		}
		run = func() {
			result = h.mod.Join(pipeline.JoinEvent{Player: player, Message: f.Message, RemoteJoinPending: f.RemoteJoinPending})
		}
	case TypeAuthLogin:
		run = func() { result = map[string]bool{"started": h.mod.AuthLogin(player)} }
	case TypeQuit:
		run = func() { result = h.mod.Quit(pipeline.LeaveEvent{Player: player, Message: f.Message}) }
	case TypeKick:
		run = func() {
			result = h.mod.Kick(pipeline.KickEvent{Player: player, Reason: f.Reason, Message: f.Message})
		}
	case TypeDeath:
		run = func() {
			result = h.mod.Death(pipeline.DeathEvent{Player: player, Message: f.Message, Minigame: f.Minigame})
		}
	case TypeChat:
		run = func() { result = h.mod.Chat(ctx, pipeline.ChatEvent{Player: player, Message: f.Message}) }
	case TypeSign:
		if f.Material != "" {
			h.world.SetBlock(f.Location, f.Material)
		}
		run = func() {
			result = h.mod.Sign(ctx, pipeline.SignEvent{
				Player:   player,
				Location: f.Location,
				Material: f.Material,
				Lines:    f.Lines,
			})
		}
	case TypeRename:
		run = func() { result = h.mod.Rename(ctx, pipeline.RenameEvent{Player: player, Name: f.Name}) }
	case TypeMailStart:
		run = func() { result = h.mod.StartMail(pipeline.MailEvent{Player: player, DraftRef: f.Draft}) }
	case TypeMailSend:
		run = func() {
			result = h.mod.SendMail(ctx, pipeline.MailEvent{
				Player:    player,
				DraftRef:  f.Draft,
				Recipient: f.Recipient,
				Body:      f.Lines,
			})
		}
	case TypeDrop:
		run = func() { result = h.mod.DropItem(pipeline.DropEvent{Player: player, HoldsDraft: f.HoldsDraft}) }
	case TypeClick:
		run = func() {
			result = h.mod.InventoryClick(pipeline.ClickEvent{
				Player:       player,
				CursorDraft:  f.CursorDraft,
				ClickedDraft: f.ClickedDraft,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported frame type: %s", f.Type)
	}

	if err := h.caller.Call(run); err != nil {
		return nil, err
	}
	return result, nil
}

// Package transport connects a game server to the moderation pipeline. The
// server sends one JSON frame per event and receives a result frame for it,
// plus command frames for broadcasts and other side effects.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/chatguard/internal/core"
)

// Inbound frame types
const (
	TypePreLogin    = "prelogin"
	TypeJoin        = "join"
	TypeAuthLogin   = "auth_login"
	TypeQuit        = "quit"
	TypeKick        = "kick"
	TypeDeath       = "death"
	TypeChat        = "chat"
	TypeSign        = "sign"
	TypeRename      = "rename"
	TypeMailStart   = "mail_start"
	TypeMailSend    = "mail_send"
	TypeDrop        = "drop"
	TypeClick       = "click"
	TypeBlock       = "block"
	TypeServerMute  = "server_mute"
	TypeMutePlayer  = "mute_player"
	TypePermissions = "permissions"
)

// Outbound frame types
const (
	TypeResult          = "result"
	TypeError           = "error"
	TypeBroadcast       = "broadcast"
	TypeSpy             = "spy"
	TypeNotify          = "notify"
	TypeSignChange      = "sign_change"
	TypeUpdateInventory = "update_inventory"
	TypeConsoleCommand  = "console_command"
)

// PlayerInfo is the snapshot of a player sent with every event
type PlayerInfo struct {
	ID          core.PlayerID `json:"id"`
	Name        string        `json:"name"`
	Permissions []string      `json:"permissions,omitempty"`
	Vanished    bool          `json:"vanished,omitempty"`
	LoggedIn    *bool         `json:"logged_in,omitempty"`
	Location    core.Location `json:"location"`
}

// Frame is a message from the game server
type Frame struct {
	ID     uint64      `json:"id,omitempty"`
	Type   string      `json:"type"`
	Player *PlayerInfo `json:"player,omitempty"`

	Message  string        `json:"message,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Name     string        `json:"name,omitempty"`
	Lines    []string      `json:"lines,omitempty"`
	Location core.Location `json:"location"`
	Material string        `json:"material,omitempty"`

	RemoteJoinPending bool `json:"remote_join_pending,omitempty"`
	Minigame          bool `json:"minigame,omitempty"`

	Draft        string `json:"draft,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	HoldsDraft   bool   `json:"holds_draft,omitempty"`
	CursorDraft  bool   `json:"cursor_draft,omitempty"`
	ClickedDraft bool   `json:"clicked_draft,omitempty"`

	// Prelogin, permissions and mute frames address players by id only
	PlayerID    core.PlayerID `json:"player_id,omitempty"`
	Permissions []string      `json:"permissions,omitempty"`
	Muted       bool          `json:"muted,omitempty"`
	Until       int64         `json:"until,omitempty"`
}

// Reply answers an inbound frame
type Reply struct {
	ID     uint64      `json:"id,omitempty"`
	Type   string      `json:"type"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Command is a side effect the game server must apply
type Command struct {
	Type     string           `json:"type"`
	Category core.Category    `json:"category,omitempty"`
	PlayerID core.PlayerID    `json:"player_id,omitempty"`
	Player   string           `json:"player,omitempty"`
	Level    core.NotifyLevel `json:"level,omitempty"`
	Text     string           `json:"text,omitempty"`
	Lines    []string         `json:"lines,omitempty"`
	Location *core.Location   `json:"location,omitempty"`
	Command  string           `json:"command,omitempty"`
}

// DecodeFrame parses one inbound frame
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame without type")
	}
	return &f, nil
}

// Encode marshals an outbound frame
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

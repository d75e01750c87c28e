package transport

import (
	"sync"

	"github.com/mikey/chatguard/internal/core"
)

// RemotePlayer is a core.Player backed by the snapshot the server sent
type RemotePlayer struct {
	info        PlayerInfo
	permissions map[string]struct{}
}

// NewRemotePlayer creates a player from a snapshot. A snapshot without the
// logged_in field counts as logged in.
func NewRemotePlayer(info PlayerInfo) *RemotePlayer {
	perms := make(map[string]struct{}, len(info.Permissions))
	for _, p := range info.Permissions {
		perms[p] = struct{}{}
	}
	return &RemotePlayer{info: info, permissions: perms}
}

func (p *RemotePlayer) ID() core.PlayerID { return p.info.ID }

func (p *RemotePlayer) Name() string { return p.info.Name }

// HasPermission reports whether the permission was granted. "*" grants all.
func (p *RemotePlayer) HasPermission(perm string) bool {
	if _, ok := p.permissions["*"]; ok {
		return true
	}
	_, ok := p.permissions[perm]
	return ok
}

func (p *RemotePlayer) IsVanished() bool { return p.info.Vanished }

func (p *RemotePlayer) IsLoggedIn() bool {
	return p.info.LoggedIn == nil || *p.info.LoggedIn
}

func (p *RemotePlayer) Location() core.Location { return p.info.Location }

// PermissionCache remembers the permissions the server announced for players
// that are not connected yet
type PermissionCache struct {
	mu    sync.RWMutex
	perms map[core.PlayerID]map[string]struct{}
}

// NewPermissionCache creates an empty cache
func NewPermissionCache() *PermissionCache {
	return &PermissionCache{perms: make(map[core.PlayerID]map[string]struct{})}
}

// Set replaces the known permissions of id
func (c *PermissionCache) Set(id core.PlayerID, permissions []string) {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.perms[id] = set
}

// Forget drops the permissions of id
func (c *PermissionCache) Forget(id core.PlayerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.perms, id)
}

// HasOfflinePermission implements core.PermissionLookup
func (c *PermissionCache) HasOfflinePermission(id core.PlayerID, perm string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := c.perms[id]
	if _, ok := set["*"]; ok {
		return true
	}
	_, ok := set[perm]
	return ok
}

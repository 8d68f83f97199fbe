package server

import (
	"sync"

	"github.com/codesync/codesync/internal/types"
)

// PresenceRegistry maps live connection ids to display names. It is owned
// by the relay, populated on join and purged on disconnect.
type PresenceRegistry struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		names: make(map[string]string),
	}
}

// Register records the display name for a connection, overwriting any
// previous name for that id.
func (pr *PresenceRegistry) Register(socketId, username string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.names[socketId] = username
}

// Unregister is a no-op for ids that were never registered.
func (pr *PresenceRegistry) Unregister(socketId string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	delete(pr.names, socketId)
}

func (pr *PresenceRegistry) LookupName(socketId string) (string, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	name, ok := pr.names[socketId]
	return name, ok
}

// Resolve joins connection ids against registered names. Ids with no
// registered name are omitted from the result.
func (pr *PresenceRegistry) Resolve(socketIds []string) []types.ClientInfo {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	members := make([]types.ClientInfo, 0, len(socketIds))
	for _, id := range socketIds {
		name, ok := pr.names[id]
		if !ok {
			continue
		}

		members = append(members, types.ClientInfo{
			SocketId: id,
			Username: name,
		})
	}

	return members
}

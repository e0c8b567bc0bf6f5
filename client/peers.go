package client

import (
	"sort"

	"github.com/wcastello/hordegrounds/protocol"
)

// RemotePeer is the client-side projection of another party in the room:
// the host (under HostPeerID) or a fellow client.
type RemotePeer struct {
	ID       string
	Position protocol.Vec3
	Rotation protocol.Vec3
}

// upsertPeer records the latest pose for id, creating the record on first
// sight. A stray update for an unknown peer is not an error; it just
// creates the peer.
func (m *Manager) upsertPeer(id string, position, rotation *protocol.Vec3) (peer RemotePeer, created bool) {
	var pos, rot protocol.Vec3
	if position != nil {
		pos = *position
	}
	if rotation != nil {
		rot = *rotation
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, known := m.peers[id]
	if !known {
		existing = &RemotePeer{ID: id}
		m.peers[id] = existing
	}
	existing.Position = pos
	existing.Rotation = rot
	return *existing, !known
}

// removePeer drops the record for id, reporting whether it existed.
func (m *Manager) removePeer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, known := m.peers[id]; !known {
		return false
	}
	delete(m.peers, id)
	return true
}

// clearPeersLocked empties the peer table and returns the dropped IDs so
// the caller can dispose visuals after releasing the lock. Callers must
// hold m.mu.
func (m *Manager) clearPeersLocked() []string {
	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	m.peers = make(map[string]*RemotePeer)
	sort.Strings(ids)
	return ids
}

// Peers returns a snapshot of the tracked remote peers, ordered by ID.
func (m *Manager) Peers() []RemotePeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RemotePeer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

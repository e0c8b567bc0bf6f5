package relay

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// seedGameState is the game state a room starts with before the host pushes
// its first update.
var seedGameState = json.RawMessage(`{}`)

// Room groups one host session with its client sessions and the last game
// state the host pushed. All fields behind mu; the registry is the only
// writer.
type Room struct {
	Code      string
	CreatedAt time.Time

	mu        sync.Mutex
	host      *Session
	clients   map[string]*Session
	gameState json.RawMessage

	// closed is set the moment host teardown begins, so a concurrent join
	// cannot slip into a room that is being destroyed.
	closed bool
}

func newRoom(code string, host *Session) *Room {
	return &Room{
		Code:      code,
		CreatedAt: time.Now(),
		host:      host,
		clients:   make(map[string]*Session),
		gameState: seedGameState,
	}
}

// admit inserts c unless teardown has begun. It returns the host and the
// game state snapshot at the instant of admission.
func (r *Room) admit(c *Session) (host *Session, state json.RawMessage, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, false
	}
	r.clients[c.ID] = c
	return r.host, r.gameState, true
}

// close marks the room dead and returns the clients to notify. Callers send
// after the lock is released.
func (r *Room) close() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	remaining := make([]*Session, 0, len(r.clients))
	for _, c := range r.clients {
		remaining = append(remaining, c)
	}
	r.clients = make(map[string]*Session)
	return remaining
}

// dropClient removes c and returns the host plus the remaining clients to
// notify. ok is false when c was not a member (already removed).
func (r *Room) dropClient(c *Session) (recipients []*Session, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	if _, member := r.clients[c.ID]; !member {
		return nil, false
	}
	delete(r.clients, c.ID)
	recipients = make([]*Session, 0, len(r.clients)+1)
	recipients = append(recipients, r.host)
	for _, other := range r.clients {
		recipients = append(recipients, other)
	}
	return recipients, true
}

// isMember reports whether s currently belongs to the room, as host or
// client. False once teardown has begun.
func (r *Room) isMember(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if r.host == s {
		return true
	}
	member, ok := r.clients[s.ID]
	return ok && member == s
}

// replaceGameState swaps the stored state wholesale if s is the room's host,
// returning the clients to broadcast to.
func (r *Room) replaceGameState(s *Session, state json.RawMessage) ([]*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.host != s {
		return nil, false
	}
	r.gameState = state
	clients := make([]*Session, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients, true
}

// peers snapshots the host and clients for relay routing.
func (r *Room) peers() (host *Session, clients []*Session, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, false
	}
	clients = make([]*Session, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return r.host, clients, true
}

// snapshotInfo builds the read-only view served by the ops API.
func (r *Room) snapshotInfo() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	clientIDs := make([]string, 0, len(r.clients))
	for id := range r.clients {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)
	return RoomInfo{
		Code:        r.Code,
		HostID:      r.host.ID,
		ClientIDs:   clientIDs,
		ClientCount: len(clientIDs),
		CreatedAt:   r.CreatedAt,
	}
}

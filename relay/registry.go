package relay

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrAlreadyInRoom   = errors.New("session already bound to a room")
	ErrNotInRoom       = errors.New("session not bound to a room")
	ErrMissingClientID = errors.New("session has no client ID")
)

// roomCodeLength and roomCodeCharset describe the human-typeable room codes
// handed to hosts. Codes are case-insensitive on input and stored uppercase.
const roomCodeLength = 6

const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomInfo is the read-only room view served by the ops API and MCP tools.
type RoomInfo struct {
	Code        string    `json:"roomId"`
	HostID      string    `json:"hostId"`
	ClientIDs   []string  `json:"clientIds"`
	ClientCount int       `json:"clientCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// JoinSnapshot is what a successful join observed inside the room's critical
// section: the host to notify and the game state at the instant of admission.
// A game state pushed after the snapshot is not retroactively part of the
// join reply.
type JoinSnapshot struct {
	Code      string
	Host      *Session
	GameState json.RawMessage
}

// LeaveNotice describes who must be told about a departure. Recipients never
// include the leaver.
type LeaveNotice struct {
	// HostLeft is true when the departing session was the room's host and
	// the room has been deleted.
	HostLeft bool
	// ClientID identifies the leaver for playerLeft notifications.
	ClientID string
	// Recipients are the sessions to notify, snapshotted under the room
	// lock.
	Recipients []*Session
}

// Registry owns the process-wide table of live rooms. The rooms map is
// guarded by a registry-level RWMutex; each room carries its own lock so
// operations on unrelated rooms never serialize against each other.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *zap.Logger
}

// NewRegistry creates an empty room registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// CreateRoom allocates a fresh room with host as its authority and binds the
// session to it. Code collisions are retried, never overwritten.
func (reg *Registry) CreateRoom(host *Session) (string, error) {
	if host.ID == "" {
		return "", ErrMissingClientID
	}
	if host.Bound() {
		return "", ErrAlreadyInRoom
	}

	reg.mu.Lock()
	var code string
	for {
		code = generateRoomCode()
		if _, taken := reg.rooms[code]; !taken {
			break
		}
	}
	reg.rooms[code] = newRoom(code, host)
	reg.mu.Unlock()

	host.bind(code, RoleHost)
	reg.logger.Info("room created",
		zap.String("room", code),
		zap.String("clientId", host.ID))
	return code, nil
}

// JoinRoom admits c into the room identified by code (case-insensitive). It
// returns ErrRoomNotFound both for codes that never existed and for rooms
// whose host-initiated teardown has already begun.
func (reg *Registry) JoinRoom(code string, c *Session) (JoinSnapshot, error) {
	if c.ID == "" {
		return JoinSnapshot{}, ErrMissingClientID
	}
	if c.Bound() {
		return JoinSnapshot{}, ErrAlreadyInRoom
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	reg.mu.RLock()
	room, exists := reg.rooms[code]
	reg.mu.RUnlock()
	if !exists {
		return JoinSnapshot{}, ErrRoomNotFound
	}

	host, state, ok := room.admit(c)
	if !ok {
		// Lost the race with host teardown.
		return JoinSnapshot{}, ErrRoomNotFound
	}

	c.bind(code, RoleClient)
	reg.logger.Info("client joined room",
		zap.String("room", code),
		zap.String("clientId", c.ID))
	return JoinSnapshot{Code: code, Host: host, GameState: state}, nil
}

// Leave detaches s from its room. A departing host deletes the room; a
// departing client is only removed from membership. The returned notice
// lists who to notify; callers send after this returns, never under a lock.
func (reg *Registry) Leave(s *Session) (LeaveNotice, error) {
	if !s.Bound() {
		return LeaveNotice{}, ErrNotInRoom
	}

	code := s.RoomCode
	reg.mu.Lock()
	room, exists := reg.rooms[code]
	if exists && s.Role == RoleHost {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()

	role := s.Role
	s.unbind()
	if !exists {
		return LeaveNotice{}, ErrRoomNotFound
	}

	if role == RoleHost {
		remaining := room.close()
		reg.logger.Info("room closed",
			zap.String("room", code),
			zap.Int("clientsNotified", len(remaining)))
		return LeaveNotice{HostLeft: true, ClientID: s.ID, Recipients: remaining}, nil
	}

	recipients, ok := room.dropClient(s)
	if !ok {
		// Host teardown already swept this client up.
		return LeaveNotice{}, ErrRoomNotFound
	}
	reg.logger.Info("client left room",
		zap.String("room", code),
		zap.String("clientId", s.ID))
	return LeaveNotice{ClientID: s.ID, Recipients: recipients}, nil
}

// ReleaseStale clears s's room binding when the room no longer holds it,
// which happens when a host teardown swept the session up while its socket
// stayed open. A released session can create or join again on the same
// connection. Like every Session mutation, this must only be called from
// s's own message handler.
func (reg *Registry) ReleaseStale(s *Session) {
	if !s.Bound() {
		return
	}
	room, exists := reg.lookup(s.RoomCode)
	if exists && room.isMember(s) {
		return
	}
	reg.logger.Debug("released stale room binding",
		zap.String("room", s.RoomCode),
		zap.String("clientId", s.ID))
	s.unbind()
}

// SetGameState replaces the stored game state of s's room if and only if s
// is the bound host, returning the clients to broadcast to. The bool result
// is false for any non-host sender; that is the host-authority enforcement
// point and the caller must drop the message silently.
func (reg *Registry) SetGameState(s *Session, state json.RawMessage) ([]*Session, bool) {
	if !s.Bound() || s.Role != RoleHost {
		return nil, false
	}
	room, exists := reg.lookup(s.RoomCode)
	if !exists {
		return nil, false
	}
	return room.replaceGameState(s, state)
}

// Peers snapshots the host and client list of s's room for relay routing.
func (reg *Registry) Peers(s *Session) (host *Session, clients []*Session, ok bool) {
	if !s.Bound() {
		return nil, nil, false
	}
	room, exists := reg.lookup(s.RoomCode)
	if !exists {
		return nil, nil, false
	}
	return room.peers()
}

// ListRooms returns a stable-ordered snapshot of every live room.
func (reg *Registry) ListRooms() []RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.snapshotInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}

// Describe returns the view of one room by code (case-insensitive).
func (reg *Registry) Describe(code string) (RoomInfo, error) {
	room, exists := reg.lookup(strings.ToUpper(strings.TrimSpace(code)))
	if !exists {
		return RoomInfo{}, ErrRoomNotFound
	}
	return room.snapshotInfo(), nil
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// SessionCount returns the number of sessions bound to rooms, hosts
// included.
func (reg *Registry) SessionCount() int {
	total := 0
	for _, info := range reg.ListRooms() {
		total += info.ClientCount + 1
	}
	return total
}

func (reg *Registry) lookup(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, exists := reg.rooms[code]
	return room, exists
}

// generateRoomCode produces a random 6-character uppercase alphanumeric
// code. Uniqueness is enforced by the caller under the registry lock.
func generateRoomCode() string {
	buf := make([]byte, roomCodeLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomCodeCharset[int(b)%len(roomCodeCharset)]
	}
	return string(buf)
}

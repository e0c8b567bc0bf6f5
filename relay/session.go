package relay

import (
	"github.com/wcastello/hordegrounds/protocol"
)

// Role is a session's position in its room, fixed once bound.
type Role int

const (
	// RoleNone is the role of a session not yet bound to a room.
	RoleNone Role = iota
	// RoleHost marks the one authoritative session of a room.
	RoleHost
	// RoleClient marks a non-authoritative room member.
	RoleClient
)

// String returns the role name used in logs.
func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	default:
		return "none"
	}
}

// Sender delivers one outbound message to a peer. Implementations must not
// block: a peer that cannot keep up has its frames dropped, never queued
// indefinitely.
type Sender interface {
	Send(msg *protocol.Message)
}

// Session is the server-side state attached to one inbound connection for
// its lifetime. Identity and binding fields are only mutated by the
// connection's own (serialized) message handler; concurrent readers get
// snapshots through the registry.
type Session struct {
	// ID is the client-generated identifier, set by the first
	// createRoom/joinRoom frame.
	ID string

	// Role and RoomCode are set on successful create/join and cleared on
	// leave.
	Role     Role
	RoomCode string

	// LastPosition and LastRotation hold the most recent pose reported by
	// this peer; outbound pose relays read from here. Values are never
	// validated.
	LastPosition protocol.Vec3
	LastRotation protocol.Vec3

	sender Sender
}

// NewSession creates an unbound session delivering outbound messages
// through sender.
func NewSession(sender Sender) *Session {
	return &Session{sender: sender}
}

// Bound reports whether the session belongs to a room.
func (s *Session) Bound() bool {
	return s.RoomCode != ""
}

// Send forwards msg to the peer, fire-and-forget.
func (s *Session) Send(msg *protocol.Message) {
	if s.sender != nil {
		s.sender.Send(msg)
	}
}

// bind records a successful room admission.
func (s *Session) bind(code string, role Role) {
	s.RoomCode = code
	s.Role = role
}

// unbind clears the room binding after a leave.
func (s *Session) unbind() {
	s.RoomCode = ""
	s.Role = RoleNone
}

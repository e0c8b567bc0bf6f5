package relay

import (
	"errors"

	"go.uber.org/zap"

	"github.com/wcastello/hordegrounds/protocol"
)

// Router dispatches inbound frames to the registry and forwards them to the
// right recipient set. It inspects nothing beyond the message type and the
// sender's role.
//
// A given session's frames must be handed to HandleMessage in the order they
// arrived on the socket; different sessions may call in concurrently.
type Router struct {
	registry *Registry
	logger   *zap.Logger
}

// NewRouter creates a router over registry.
func NewRouter(registry *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: registry, logger: logger}
}

// HandleMessage processes one inbound frame from s. Protocol violations
// (malformed JSON, unknown types, host-only frames from non-hosts) are
// dropped without touching the connection; only a joinRoom against a dead
// code produces an error reply.
func (rt *Router) HandleMessage(s *Session, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		rt.logger.Debug("dropping malformed frame", zap.Error(err))
		return
	}

	switch msg.Type {
	case protocol.TypeCreateRoom:
		rt.handleCreateRoom(s, msg)
	case protocol.TypeJoinRoom:
		rt.handleJoinRoom(s, msg)
	case protocol.TypeUpdatePosition:
		rt.handleUpdatePosition(s, msg)
	case protocol.TypeUpdateGameState:
		rt.handleUpdateGameState(s, msg)
	case protocol.TypePlayerAction:
		rt.handlePlayerAction(s, msg)
	default:
		rt.logger.Debug("dropping frame with unknown type", zap.String("type", msg.Type))
	}
}

// Disconnect tears down s after its socket closed: the session leaves its
// room and the remaining peers are notified. Safe to call for sessions that
// never bound to a room.
func (rt *Router) Disconnect(s *Session) {
	notice, err := rt.registry.Leave(s)
	if err != nil {
		return
	}

	if notice.HostLeft {
		out := &protocol.Message{
			Type:    protocol.TypeHostLeft,
			Message: "The host has left the game",
		}
		for _, peer := range notice.Recipients {
			peer.Send(out)
		}
		return
	}

	out := &protocol.Message{
		Type:     protocol.TypePlayerLeft,
		ClientID: notice.ClientID,
	}
	for _, peer := range notice.Recipients {
		peer.Send(out)
	}
}

func (rt *Router) handleCreateRoom(s *Session, msg *protocol.Message) {
	rt.registry.ReleaseStale(s)
	if !s.Bound() {
		s.ID = msg.ClientID
	}
	code, err := rt.registry.CreateRoom(s)
	if err != nil {
		rt.logger.Debug("createRoom rejected",
			zap.String("clientId", msg.ClientID),
			zap.Error(err))
		return
	}
	s.Send(&protocol.Message{
		Type:     protocol.TypeRoomCreated,
		RoomID:   code,
		ClientID: s.ID,
	})
}

func (rt *Router) handleJoinRoom(s *Session, msg *protocol.Message) {
	rt.registry.ReleaseStale(s)
	if !s.Bound() {
		s.ID = msg.ClientID
		if msg.Position != nil {
			s.LastPosition = *msg.Position
		}
		if msg.Rotation != nil {
			s.LastRotation = *msg.Rotation
		}
	}

	snap, err := rt.registry.JoinRoom(msg.RoomID, s)
	if errors.Is(err, ErrRoomNotFound) {
		s.Send(&protocol.Message{
			Type:    protocol.TypeError,
			Message: "Room not found",
		})
		return
	}
	if err != nil {
		rt.logger.Debug("joinRoom rejected",
			zap.String("room", msg.RoomID),
			zap.String("clientId", msg.ClientID),
			zap.Error(err))
		return
	}

	s.Send(&protocol.Message{
		Type:      protocol.TypeRoomJoined,
		RoomID:    snap.Code,
		GameState: snap.GameState,
	})
	pos, rot := s.LastPosition, s.LastRotation
	snap.Host.Send(&protocol.Message{
		Type:     protocol.TypePlayerJoined,
		ClientID: s.ID,
		Position: &pos,
		Rotation: &rot,
	})
}

func (rt *Router) handleUpdatePosition(s *Session, msg *protocol.Message) {
	if msg.Position != nil {
		s.LastPosition = *msg.Position
	}
	if msg.Rotation != nil {
		s.LastRotation = *msg.Rotation
	}

	host, clients, ok := rt.registry.Peers(s)
	if !ok {
		return
	}

	// The session's stored pose is relayed, so a frame that omits a field
	// forwards the last value seen instead of resetting the peer.
	pos, rot := s.LastPosition, s.LastRotation

	if s.Role == RoleHost {
		out := &protocol.Message{
			Type:     protocol.TypeHostPosition,
			Position: &pos,
			Rotation: &rot,
		}
		for _, c := range clients {
			c.Send(out)
		}
		return
	}

	out := &protocol.Message{
		Type:     protocol.TypePlayerPosition,
		ClientID: s.ID,
		Position: &pos,
		Rotation: &rot,
	}
	host.Send(out)
	for _, c := range clients {
		if c != s {
			c.Send(out)
		}
	}
}

func (rt *Router) handleUpdateGameState(s *Session, msg *protocol.Message) {
	clients, ok := rt.registry.SetGameState(s, msg.GameState)
	if !ok {
		// Host-authority enforcement: silently dropped.
		rt.logger.Debug("updateGameState from non-host dropped",
			zap.String("clientId", s.ID),
			zap.String("room", s.RoomCode))
		return
	}
	out := &protocol.Message{
		Type:      protocol.TypeGameState,
		GameState: msg.GameState,
	}
	for _, c := range clients {
		c.Send(out)
	}
}

func (rt *Router) handlePlayerAction(s *Session, msg *protocol.Message) {
	host, clients, ok := rt.registry.Peers(s)
	if !ok {
		return
	}

	out := &protocol.Message{
		Type:     protocol.TypePlayerAction,
		ClientID: s.ID,
		Action:   msg.Action,
		Data:     msg.Data,
	}

	// Allow-listed horde actions apply symmetrically on every peer, so they
	// are fanned out directly in addition to the host delivery.
	if protocol.PeerBroadcastAction(msg.Action) {
		for _, c := range clients {
			if c != s {
				c.Send(out)
			}
		}
	}

	if host != s {
		host.Send(out)
	}
}

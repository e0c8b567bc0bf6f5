package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wcastello/hordegrounds/protocol"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("session not connected")
	ErrAlreadyInRoom    = errors.New("session already in a room")
)

// State is the connection state of the session manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRoomPending
	StateInRoom
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRoomPending:
		return "roomPending"
	case StateInRoom:
		return "inRoom"
	default:
		return "disconnected"
	}
}

// defaultSendInterval is the period of the position broadcast loop (~20 Hz).
const defaultSendInterval = 50 * time.Millisecond

// Manager owns the outbound relay connection for one local player. All
// exported methods are safe for concurrent use; inbound dispatch runs on the
// manager's own read loop.
type Manager struct {
	url      string
	clientID string
	game     Game
	logger   *zap.Logger

	dial         dialFunc
	sendInterval time.Duration

	mu            sync.Mutex
	state         State
	isHost        bool
	roomCode      string
	conn          wire
	peers         map[string]*RemotePeer
	stopBroadcast chan struct{}

	// writeMu serializes writes; the broadcast loop and callers share the
	// socket.
	writeMu sync.Mutex
}

// NewManager creates a session manager for the relay at url. The client
// identity is generated locally, before any handshake.
func NewManager(url string, game Game, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		url:          url,
		clientID:     uuid.NewString(),
		game:         game,
		logger:       logger,
		dial:         dialWebSocket,
		sendInterval: defaultSendInterval,
		peers:        make(map[string]*RemotePeer),
	}
}

// ClientID returns the locally generated identity sent on handshakes.
func (m *Manager) ClientID() string {
	return m.clientID
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RoomCode returns the bound room code, or "" outside a room.
func (m *Manager) RoomCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomCode
}

// IsHost reports whether the local session is its room's authority.
func (m *Manager) IsHost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isHost && m.state == StateInRoom
}

// Connect opens the transport. On failure the manager logs and stays
// Disconnected; there is no automatic retry.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, err := m.dial(ctx, m.url)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.logger.Warn("connect failed", zap.String("url", m.url), zap.Error(err))
		return fmt.Errorf("connecting to %s: %w", m.url, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.Info("connected to relay", zap.String("url", m.url), zap.String("clientId", m.clientID))
	go m.readLoop(conn)
	return nil
}

// CreateRoom asks the relay for a fresh room with this session as host.
// Valid only from Connected; the roomCreated reply arrives asynchronously.
func (m *Manager) CreateRoom() error {
	if err := m.beginRoomRequest(); err != nil {
		return err
	}
	return m.sendOrAbort(&protocol.Message{
		Type:     protocol.TypeCreateRoom,
		ClientID: m.clientID,
	})
}

// JoinRoom asks the relay to admit this session into code's room. The
// initial pose is sampled once, at call time.
func (m *Manager) JoinRoom(code string) error {
	if err := m.beginRoomRequest(); err != nil {
		return err
	}
	pos, rot := m.game.LocalPose()
	return m.sendOrAbort(&protocol.Message{
		Type:     protocol.TypeJoinRoom,
		RoomID:   code,
		ClientID: m.clientID,
		Position: &pos,
		Rotation: &rot,
	})
}

// SendGameState pushes the host's authoritative state to the relay. The
// server drops it unless this session is the room's host.
func (m *Manager) SendGameState(state []byte) error {
	if m.State() != StateInRoom {
		return ErrNotConnected
	}
	return m.send(&protocol.Message{
		Type:      protocol.TypeUpdateGameState,
		GameState: state,
	})
}

// SendPlayerAction relays an action to the host for simulation. The two
// horde actions are additionally fanned out to every other client by the
// server.
func (m *Manager) SendPlayerAction(action string, data []byte) error {
	if m.State() != StateInRoom {
		return ErrNotConnected
	}
	return m.send(&protocol.Message{
		Type:   protocol.TypePlayerAction,
		Action: action,
		Data:   data,
	})
}

// Disconnect tears the session down unconditionally: the broadcast timer is
// stopped, peers are disposed, and the transport is closed.
func (m *Manager) Disconnect() {
	m.teardown("disconnected")
}

// beginRoomRequest checks CreateRoom/JoinRoom preconditions and moves the
// state machine to RoomPending.
func (m *Manager) beginRoomRequest() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateConnected:
		m.state = StateRoomPending
		return nil
	case StateRoomPending, StateInRoom:
		return ErrAlreadyInRoom
	default:
		return ErrNotConnected
	}
}

// sendOrAbort sends a room request and rolls back to Connected if the write
// fails.
func (m *Manager) sendOrAbort(msg *protocol.Message) error {
	if err := m.send(msg); err != nil {
		m.mu.Lock()
		if m.state == StateRoomPending {
			m.state = StateConnected
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// send writes one frame to the transport.
func (m *Manager) send(msg *protocol.Message) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readLoop drains the transport and dispatches inbound frames until the
// connection closes.
func (m *Manager) readLoop(conn wire) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if m.State() != StateDisconnected {
				m.logger.Info("relay connection closed", zap.Error(err))
				m.teardown("connection lost")
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			m.logger.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		m.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound frame to local effects. Collaborator
// calls happen outside the state lock.
func (m *Manager) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeRoomCreated:
		m.enterRoom(msg.RoomID, true)

	case protocol.TypeRoomJoined:
		if m.enterRoom(msg.RoomID, false) {
			m.game.ApplyHostGameState(msg.GameState)
		}

	case protocol.TypePlayerJoined:
		peer, _ := m.upsertPeer(msg.ClientID, msg.Position, msg.Rotation)
		m.game.RenderRemotePeer(peer.ID, peer.Position, peer.Rotation)

	case protocol.TypePlayerPosition:
		m.applyPeerPose(msg.ClientID, msg)

	case protocol.TypeHostPosition:
		m.applyPeerPose(HostPeerID, msg)

	case protocol.TypeGameState:
		m.game.ApplyHostGameState(msg.GameState)

	case protocol.TypePlayerAction:
		m.handlePlayerAction(msg)

	case protocol.TypePlayerLeft:
		if m.removePeer(msg.ClientID) {
			m.game.RemoveRemotePeer(msg.ClientID)
		}

	case protocol.TypeHostLeft:
		m.logger.Warn("host left, ending session", zap.String("message", msg.Message))
		m.teardown("host left the game")

	case protocol.TypeError:
		m.handleServerError(msg.Message)

	default:
		m.logger.Debug("dropping frame with unknown type", zap.String("type", msg.Type))
	}
}

// enterRoom transitions RoomPending → InRoom and starts the broadcast loop.
func (m *Manager) enterRoom(code string, asHost bool) bool {
	m.mu.Lock()
	if m.state != StateRoomPending {
		m.mu.Unlock()
		m.logger.Debug("unexpected room reply", zap.String("room", code))
		return false
	}
	m.roomCode = code
	m.isHost = asHost
	m.state = StateInRoom
	m.startBroadcastLocked()
	m.mu.Unlock()

	m.logger.Info("entered room",
		zap.String("room", code),
		zap.Bool("host", asHost))
	return true
}

// applyPeerPose updates a peer's pose, lazily creating the record on first
// sight (a stray update for an unknown peer is recovered silently).
func (m *Manager) applyPeerPose(id string, msg *protocol.Message) {
	peer, created := m.upsertPeer(id, msg.Position, msg.Rotation)
	if created {
		m.game.RenderRemotePeer(peer.ID, peer.Position, peer.Rotation)
		return
	}
	m.game.MoveRemotePeer(peer.ID, peer.Position, peer.Rotation)
}

// handlePlayerAction applies horde actions directly on any peer; other
// actions are simulated only when the local session hosts the room.
func (m *Manager) handlePlayerAction(msg *protocol.Message) {
	if protocol.PeerBroadcastAction(msg.Action) {
		m.game.DispatchHordeCommand(msg.Action, msg.Data)
		return
	}

	m.mu.Lock()
	host := m.isHost && m.state == StateInRoom
	m.mu.Unlock()
	if !host {
		return
	}
	if sim, ok := m.game.(ActionSimulator); ok {
		sim.SimulatePlayerAction(msg.ClientID, msg.Action, msg.Data)
		return
	}
	m.logger.Debug("player action ignored, game does not simulate",
		zap.String("action", msg.Action))
}

// handleServerError surfaces an error reply. A failed join exits back to
// Connected; the connection itself stays usable.
func (m *Manager) handleServerError(message string) {
	m.logger.Warn("server error", zap.String("message", message))

	m.mu.Lock()
	if m.state == StateRoomPending {
		m.state = StateConnected
		m.isHost = false
		m.roomCode = ""
	}
	m.mu.Unlock()

	if n, ok := m.game.(Notifier); ok {
		n.ServerError(message)
	}
}

// teardown ends the session unconditionally: the broadcast timer stops, the
// peer table is disposed, and the transport is closed, all in one step.
func (m *Manager) teardown(reason string) {
	m.mu.Lock()
	if m.state == StateDisconnected && m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.isHost = false
	m.roomCode = ""
	m.stopBroadcastLocked()
	dropped := m.clearPeersLocked()
	m.mu.Unlock()

	for _, id := range dropped {
		m.game.RemoveRemotePeer(id)
	}
	if conn != nil {
		conn.Close()
	}
	if n, ok := m.game.(Notifier); ok {
		n.SessionEnded(reason)
	}
}

// startBroadcastLocked starts the fixed-rate position push. Callers must
// hold m.mu.
func (m *Manager) startBroadcastLocked() {
	stop := make(chan struct{})
	m.stopBroadcast = stop
	go m.broadcastLoop(stop)
}

// stopBroadcastLocked cancels the broadcast loop if one is running. Callers
// must hold m.mu.
func (m *Manager) stopBroadcastLocked() {
	if m.stopBroadcast != nil {
		close(m.stopBroadcast)
		m.stopBroadcast = nil
	}
}

// broadcastLoop pushes the local pose at the fixed send interval until
// stopped. It never fires once the session has left InRoom.
func (m *Manager) broadcastLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.sendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.State() != StateInRoom {
				return
			}
			pos, rot := m.game.LocalPose()
			if err := m.send(&protocol.Message{
				Type:     protocol.TypeUpdatePosition,
				Position: &pos,
				Rotation: &rot,
			}); err != nil {
				m.logger.Debug("position push failed", zap.Error(err))
			}
		}
	}
}

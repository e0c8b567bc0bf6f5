package client

import (
	"encoding/json"

	"github.com/wcastello/hordegrounds/protocol"
)

// HostPeerID is the reserved remote-peer identifier under which a client
// tracks the room's host. Hosts never appear under their real client ID on
// the wire; hostPosition frames carry no ID at all.
const HostPeerID = "host"

// Game is the collaborator surface the session manager drives. The manager
// owns networking and presence; the Game owns rendering, interpolation, and
// rule logic.
type Game interface {
	// LocalPose returns the current position and rotation of the local
	// player, sampled by the broadcast loop.
	LocalPose() (position, rotation protocol.Vec3)

	// RenderRemotePeer creates the visual for a newly seen peer.
	RenderRemotePeer(id string, position, rotation protocol.Vec3)

	// MoveRemotePeer requests a smoothed move of an existing peer's visual.
	MoveRemotePeer(id string, position, rotation protocol.Vec3)

	// RemoveRemotePeer disposes the visual for a departed peer.
	RemoveRemotePeer(id string)

	// ApplyHostGameState reconciles the local world against the host's
	// opaque state blob.
	ApplyHostGameState(state json.RawMessage)

	// DispatchHordeCommand applies a peer-broadcast horde action locally.
	DispatchHordeCommand(action string, data json.RawMessage)
}

// ActionSimulator is an optional Game extension for hosts. When the local
// session is the room's host, relayed playerAction frames outside the horde
// allow-list are handed here for simulation. Games that never host (or
// ignore player actions) simply don't implement it.
type ActionSimulator interface {
	SimulatePlayerAction(clientID, action string, data json.RawMessage)
}

// Notifier is an optional Game extension for surfacing user-visible
// conditions: a terminal session end (hostLeft, transport loss) and error
// replies from the server.
type Notifier interface {
	SessionEnded(reason string)
	ServerError(message string)
}

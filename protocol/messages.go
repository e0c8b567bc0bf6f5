// Package protocol defines the wire format shared by the relay server and
// the client session manager.
//
// Every frame is a single flat JSON object; the "type" field selects the
// variant and unused fields are omitted. There is no version field.
//
//	Client → Server:
//	  createRoom      {"type":"createRoom","clientId":"..."}
//	  joinRoom        {"type":"joinRoom","roomId":"AB12CD","clientId":"...","position":{...},"rotation":{...}}
//	  updatePosition  {"type":"updatePosition","position":{...},"rotation":{...}}
//	  updateGameState {"type":"updateGameState","gameState":{...}}        (host only)
//	  playerAction    {"type":"playerAction","action":"...","data":{...}}
//
//	Server → Client:
//	  roomCreated     {"type":"roomCreated","roomId":"AB12CD","clientId":"..."}
//	  roomJoined      {"type":"roomJoined","roomId":"AB12CD","gameState":{...}}
//	  playerJoined    {"type":"playerJoined","clientId":"...","position":{...},"rotation":{...}}
//	  playerPosition  {"type":"playerPosition","clientId":"...","position":{...},"rotation":{...}}
//	  hostPosition    {"type":"hostPosition","position":{...},"rotation":{...}}
//	  gameState       {"type":"gameState","gameState":{...}}
//	  playerAction    {"type":"playerAction","clientId":"...","action":"...","data":{...}}
//	  playerLeft      {"type":"playerLeft","clientId":"..."}
//	  hostLeft        {"type":"hostLeft","message":"..."}
//	  error           {"type":"error","message":"..."}
//
// gameState and data payloads are opaque to this package; they are carried
// as raw JSON and never inspected by the relay.
package protocol

import "encoding/json"

// Message type identifiers, client → server.
const (
	TypeCreateRoom      = "createRoom"
	TypeJoinRoom        = "joinRoom"
	TypeUpdatePosition  = "updatePosition"
	TypeUpdateGameState = "updateGameState"
	TypePlayerAction    = "playerAction"
)

// Message type identifiers, server → client.
const (
	TypeRoomCreated    = "roomCreated"
	TypeRoomJoined     = "roomJoined"
	TypePlayerJoined   = "playerJoined"
	TypePlayerPosition = "playerPosition"
	TypeHostPosition   = "hostPosition"
	TypeGameState      = "gameState"
	TypePlayerLeft     = "playerLeft"
	TypeHostLeft       = "hostLeft"
	TypeError          = "error"
)

// Actions that are fanned out to every other client directly, in addition
// to being delivered to the host. All other actions are host-arbitrated.
const (
	ActionStartHorde     = "startHorde"
	ActionActivateHordes = "activateHordeSystem"
)

// PeerBroadcastAction reports whether action bypasses host arbitration and
// is broadcast verbatim to all other clients in the room.
func PeerBroadcastAction(action string) bool {
	return action == ActionStartHorde || action == ActionActivateHordes
}

// Vec3 is a position or Euler rotation in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Message is the single envelope for every frame on the wire. Fields not
// used by a given type are omitted when marshaling.
type Message struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Position  *Vec3           `json:"position,omitempty"`
	Rotation  *Vec3           `json:"rotation,omitempty"`
	GameState json.RawMessage `json:"gameState,omitempty"`
	Action    string          `json:"action,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Decode parses a single wire frame.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Encode serializes msg for the wire.
func Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Package client implements the Hordegrounds client session manager: the
// piece that owns the outbound relay connection and drives a game client
// through it.
//
// The client package implements:
//   - The connection state machine (Disconnected → Connecting → Connected →
//     RoomPending → InRoom → Disconnected)
//   - Create/join handshakes against the relay server
//   - The fixed-rate position broadcast loop (~20 Hz)
//   - Inbound message dispatch to the Game collaborator
//   - Remote-peer presence tracking
//
// The manager knows nothing about rendering or game rules. Everything with
// a visible effect goes through the Game interface: the manager asks for the
// local pose, tells the game to render/move/remove remote peers, hands over
// host game state wholesale, and forwards horde commands. Interpolation of
// remote movement is the game's problem.
//
// The transport is hidden behind a tiny wire interface so the state machine
// and dispatch logic are unit-testable without a live socket.
//
// Usage:
//
//	mgr := client.NewManager("ws://localhost:8080/ws", game, logger)
//	if err := mgr.Connect(ctx); err != nil {
//		// no automatic retry; the caller decides
//	}
//	if err := mgr.CreateRoom(); err != nil { // or mgr.JoinRoom("AB12CD")
//		// not connected, or already in a room
//	}
//
// The roomCreated/roomJoined reply arrives asynchronously; once it does,
// mgr.State() is StateInRoom and mgr.RoomCode() holds the code.
//
// A host disconnect is terminal: on hostLeft the manager tears the session
// down completely and the user has to start over from the menu. There is no
// reconnection and no host migration.
package client

// Package relay implements the server core of the Hordegrounds room relay:
// connection sessions, the room registry, and the message router.
//
// The relay package implements:
//   - Connection session state (identity, role, room binding, last pose)
//   - Room lifecycle: creation, join admission, teardown
//   - Message routing between a room's host and its clients
//   - Host-authority enforcement for game state updates
//
// Model:
//
// A Room groups exactly one host session with zero or more client sessions.
// The host's locally-produced state is canonical; updateGameState frames from
// any other session are dropped. A room's lifetime is exactly its host's
// connection lifetime: when the host disconnects the room is deleted and every
// remaining client receives hostLeft. There is no host migration.
//
// Concurrency:
//
// The registry map is guarded by a registry-level RWMutex and each room by its
// own mutex, so unrelated rooms never serialize against each other. Registry
// operations mutate maps and snapshot recipient lists inside the critical
// section; the actual sends always happen after the locks are released, so a
// slow peer can never stall the registry. Outbound delivery is fire-and-forget
// through the Sender interface.
//
// Usage:
//
//	registry := relay.NewRegistry(logger)
//	router := relay.NewRouter(registry, logger)
//
//	// per connection, from the transport:
//	sess := relay.NewSession(sender)
//	router.HandleMessage(sess, frame) // for each inbound frame, in order
//	router.Disconnect(sess)           // once, when the socket closes
package relay

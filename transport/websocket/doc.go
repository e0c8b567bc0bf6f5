// Package websocket provides the WebSocket transport for the Hordegrounds
// relay server.
//
// The websocket package implements:
//   - Connection upgrade and per-connection goroutines
//   - A non-blocking outbound path implementing relay.Sender
//   - Ping/pong liveness and read/write deadlines
//   - Teardown that removes the session from its room exactly once
//
// Connection Lifecycle:
//
//  1. Client connects to /ws and the handler upgrades the socket
//  2. A relay.Session is created with the peer as its Sender
//  3. readPump hands each frame to the router, in arrival order
//  4. writePump drains the buffered send channel and pings the peer
//  5. On close (either direction), the router is told to disconnect the
//     session and both pumps exit
//
// Concurrency:
//
// One peer's frames are processed serially by its readPump, so the relay
// sees per-connection ordering; different peers run concurrently. Send never
// blocks: when a peer's buffer is full the frame is dropped, which matches
// the relay's fire-and-forget delivery contract.
package websocket

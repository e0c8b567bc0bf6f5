// Package api provides the HTTP surface of the Hordegrounds relay server.
//
// The api package implements:
//   - WebSocket upgrade handling at /ws (the relay's only mutating surface)
//   - Read-only ops endpoints for inspecting live rooms
//   - Server status reporting
//   - Static file serving for the game client bundle
//
// Endpoints:
//
//	GET /api/rooms         - list live rooms (code, host, client count)
//	GET /api/rooms/{code}  - detail for one room, 404 when dead or unknown
//	GET /api/status        - uptime, room and session counts
//	GET /ws                - WebSocket upgrade into the relay
//	GET /                  - static game client files
//
// The rooms endpoints never mutate relay state; room membership only changes
// through the WebSocket protocol. All responses are JSON except the static
// mount. Errors are returned as {"error": "message"} with an appropriate
// HTTP status code.
package api

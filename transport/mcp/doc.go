// Package mcp exposes the relay server's ops surface over the Model Context
// Protocol.
//
// The package is a thin client that proxies every tool call to the REST API;
// it holds no relay state of its own, so the tools always observe the same
// room table the HTTP endpoints do.
//
// Tools:
//   - list_rooms: all live rooms with host and client counts
//   - room_info: detail for one room by code
//   - server_stats: uptime, room and session counts
//   - server_instructions: what this server does and how rooms work
//
// The MCP server is mounted two ways, same as the HTTP API it wraps: at
// POST /mcp on the main server, and over stdio in stdio-mcp mode.
package mcp

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wcastello/hordegrounds/relay"
)

// Client is a thin MCP client that proxies to the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server for mounting or stdio use.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Hordegrounds Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Hordegrounds Relay Server - MCP Interface

This is a thin client that proxies all requests to the relay's REST API.

The relay hosts multiplayer co-op sessions: one host runs the authoritative
game and any number of clients join it by room code over WebSocket. These
tools are read-only; rooms are only created and joined through the game
protocol itself.

AVAILABLE TOOLS:
- list_rooms: List all live rooms
- room_info: Get detail for one room by its 6-character code
- server_stats: Get uptime and room/session counts
- server_instructions: Explain the relay and its protocol`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms with their hosts and client counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_info",
		Description: "Get details of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_code": map[string]interface{}{
					"type":        "string",
					"description": "6-character room code (case-insensitive)",
				},
			},
			Required: []string{"room_code"},
		},
	}, c.handleRoomInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get server uptime and room/session counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_instructions",
		Description: "Explain what the relay server does and how rooms work",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerInstructions)
}

// apiCall performs an HTTP request against the REST API and decodes the
// JSON response into result.
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int              `json:"count"`
		Rooms []relay.RoomInfo `json:"rooms"`
	}

	err := c.apiCall("GET", "/api/rooms", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No live rooms."), nil
	}

	result := fmt.Sprintf("Live Rooms (%d):\n\n", response.Count)
	for _, room := range response.Rooms {
		result += fmt.Sprintf("- %s (Host: %s, Clients: %d, Created: %s)\n",
			room.Code, room.HostID, room.ClientCount, room.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoomInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomCode, _ := args["room_code"].(string)

	var room relay.RoomInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", roomCode), nil, &room)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Room %s\nHost: %s\nCreated: %s\nClients (%d):\n",
		room.Code, room.HostID, room.CreatedAt.Format(time.RFC3339), room.ClientCount)
	if room.ClientCount == 0 {
		result += "  (none)\n"
	}
	for _, id := range room.ClientIDs {
		result += fmt.Sprintf("  - %s\n", id)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status struct {
		Status   string `json:"status"`
		Uptime   string `json:"uptime"`
		Rooms    int    `json:"rooms"`
		Sessions int    `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/status", nil, &status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Status: %s\nUptime: %s\nRooms: %d\nSessions: %d\n",
		status.Status, status.Uptime, status.Rooms, status.Sessions)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleServerInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := strings.TrimSpace(`
Hordegrounds is a co-op horde survival game. This server relays messages
between one host (the authoritative copy of a session) and its clients.

How a session works:
1. The host connects to /ws and sends createRoom; it gets back a 6-character
   room code to share.
2. Clients connect to /ws and send joinRoom with that code. They receive the
   host's current game state on admission.
3. Everyone pushes updatePosition ~20 times a second; the relay forwards
   poses between all peers in the room.
4. Only the host may push updateGameState; frames from anyone else are
   dropped. Player actions are relayed to the host for simulation, except
   the horde actions (startHorde, activateHordeSystem) which are broadcast
   to every peer directly.
5. When the host disconnects the room is destroyed and every client gets
   hostLeft. There is no reconnection and no host migration.

Rooms live in server memory only and do not survive a restart.
`)
	return mcp.NewToolResultText(instructions), nil
}

package client

import (
	"context"

	"github.com/gorilla/websocket"
)

// wire is the minimal transport surface the manager needs. The state
// machine is driven entirely through it, which keeps dispatch testable with
// an in-memory fake.
type wire interface {
	WriteJSON(v interface{}) error
	ReadMessage() ([]byte, error)
	Close() error
}

// dialFunc opens a transport to the relay server.
type dialFunc func(ctx context.Context, url string) (wire, error)

// gorillaWire adapts *websocket.Conn to the wire interface.
type gorillaWire struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, url string) (wire, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaWire{conn: conn}, nil
}

func (g *gorillaWire) WriteJSON(v interface{}) error {
	return g.conn.WriteJSON(v)
}

func (g *gorillaWire) ReadMessage() ([]byte, error) {
	_, data, err := g.conn.ReadMessage()
	return data, err
}

func (g *gorillaWire) Close() error {
	return g.conn.Close()
}

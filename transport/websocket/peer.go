package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wcastello/hordegrounds/protocol"
	"github.com/wcastello/hordegrounds/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Game state blobs are opaque
	// host data, so this is generous.
	maxMessageSize = 64 * 1024

	// Outbound buffer per peer; frames beyond this are dropped.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The relay does no authentication; the game client is served from
		// arbitrary origins during development.
		return true
	},
}

// Handler upgrades inbound requests and attaches each socket to the relay.
type Handler struct {
	router *relay.Router
	logger *zap.Logger
}

// NewHandler creates the /ws endpoint handler.
func NewHandler(router *relay.Router, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{router: router, logger: logger}
}

// ServeHTTP upgrades the connection and runs its pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	peer := &Peer{
		conn:   conn,
		router: h.router,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: h.logger,
	}
	peer.session = relay.NewSession(peer)

	go peer.writePump()
	go peer.readPump()
}

// Peer wraps one WebSocket connection and its relay session. It implements
// relay.Sender.
type Peer struct {
	conn    *websocket.Conn
	router  *relay.Router
	session *relay.Session
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

// Send queues msg for delivery without blocking. Frames for a peer that is
// closed or cannot keep up are dropped; delivery failure is detected only
// via transport close.
func (p *Peer) Send(msg *protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		p.logger.Error("failed to encode outbound frame", zap.Error(err))
		return
	}
	select {
	case <-p.done:
	case p.send <- data:
	default:
		p.logger.Warn("peer send buffer full, dropping frame",
			zap.String("clientId", p.session.ID),
			zap.String("type", msg.Type))
	}
}

// close makes teardown idempotent: both pumps funnel through here.
func (p *Peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
		p.router.Disconnect(p.session)
	})
}

// readPump pumps frames from the socket into the router. Messages from one
// socket are processed in the order received.
func (p *Peer) readPump() {
	defer p.close()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				p.logger.Warn("websocket read error",
					zap.String("clientId", p.session.ID),
					zap.Error(err))
			}
			return
		}
		p.router.HandleMessage(p.session, data)
	}
}

// writePump pumps queued frames to the socket and keeps the connection
// alive with pings.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

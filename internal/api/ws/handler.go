package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Debug surface, LAN only
	},
}

// clientBuffer bounds frames queued per connection.
const clientBuffer = 64

// Handler upgrades stream connections and pumps frames between the hub
// and each client.
type Handler struct {
	hub     *Hub
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		hub:     hub,
		logger:  logger.Named("ws"),
		metrics: metrics,
	}
}

// client is one stream connection. The hub owns stop; send stays open
// for the connection's lifetime.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan types.WSMessage
	stop chan struct{}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	// Welcome before the pumps start, while this goroutine still owns
	// the connection.
	welcome := types.WSMessage{
		Type: "system",
		Data: map[string]interface{}{"message": "Connected to MicroPythonOS Shell"},
	}
	if err := conn.WriteJSON(welcome); err != nil {
		conn.Close()
		return
	}

	cl := &client{
		hub:  h.hub,
		conn: conn,
		send: make(chan types.WSMessage, clientBuffer),
		stop: make(chan struct{}),
	}
	if !h.hub.add(cl) {
		conn.Close()
		return
	}

	go h.writePump(cl)
	h.readPump(cl)
}

// readPump consumes client frames until the connection drops.
func (h *Handler) readPump(cl *client) {
	defer func() {
		h.hub.remove(cl)
		cl.conn.Close()
	}()

	for {
		var msg types.WSMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read error", zap.Error(err))
			}
			return
		}

		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.enqueue(cl, types.WSMessage{Type: "pong"})
		default:
			h.enqueue(cl, types.WSMessage{
				Type: "error",
				Data: map[string]interface{}{
					"message":   "unknown message type",
					"timestamp": time.Now().Unix(),
				},
			})
		}
	}
}

// writePump drains the client's queue until the hub signals stop, then
// drops the connection with a close frame.
func (h *Handler) writePump(cl *client) {
	defer cl.conn.Close()

	for {
		select {
		case msg := <-cl.send:
			if err := cl.conn.WriteJSON(msg); err != nil {
				return
			}
			h.metrics.RecordWSMessage("out", msg.Type)

		case <-cl.stop:
			cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// enqueue queues a reply without blocking the read loop.
func (h *Handler) enqueue(cl *client, msg types.WSMessage) {
	select {
	case cl.send <- msg:
	default:
	}
}

package ws

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/shared/types"
)

// eventBuffer bounds transitions queued between the UI thread and the
// hub; past that, frames drop.
const eventBuffer = 256

// Hub fans navigator transitions out to every connected stream client.
//
// The hub is registered once as a navigator listener. Listeners run on
// the UI thread, so Publish never blocks: transitions are queued, and
// when the queue or a client's own buffer is full, frames are dropped
// rather than stalling navigation.
type Hub struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	register   chan *client
	unregister chan *client
	events     chan types.Transition
	clients    map[*client]bool
	count      atomic.Int32
	done       chan struct{}
}

// NewHub creates a hub. Call Run before wiring it into the navigator.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	return &Hub{
		logger:     logger.Named("ws"),
		metrics:    metrics,
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan types.Transition, eventBuffer),
		clients:    make(map[*client]bool),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is canceled, then closes every
// remaining connection. Only this goroutine closes a client's stop
// channel; the send channel is never closed, so the reply path cannot
// race a shutdown.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.stop)
			c.conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int32(len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.count.Store(int32(len(h.clients)))
				close(c.stop)
			}

		case t := <-h.events:
			msg := types.WSMessage{Type: "transition", Data: t}
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; skip the frame, keep the connection.
					h.logger.Debug("client buffer full, dropping frame",
						zap.String("component", t.Component))
				}
			}
		}
	}
}

// Publish queues a transition for broadcast. It is the navigator
// listener and must return immediately.
func (h *Hub) Publish(t types.Transition) {
	select {
	case h.events <- t:
	case <-h.done:
	default:
		h.logger.Warn("event buffer full, dropping transition",
			zap.String("component", t.Component),
			zap.String("hook", string(t.Hook)))
	}
}

// Clients returns the number of connected stream clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// add registers a client; false means the hub has stopped.
func (h *Hub) add(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters a client. Safe to call after the hub stops.
func (h *Hub) remove(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

package relay

import (
	"context"

	"go.uber.org/zap"
)

// Hub owns the set of live connections and fans frames out to them.
// All map access happens on the Run goroutine.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	stopped    chan struct{}

	log     *zap.Logger
	metrics *Metrics
}

type broadcastMsg struct {
	sender *Client
	kind   Kind
	data   []byte
}

func NewHub(log *zap.Logger, metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		stopped:    make(chan struct{}),
		log:        log,
		metrics:    metrics,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.metrics.connections.Set(float64(len(h.clients)))
			h.log.Info("connection opened",
				zap.Stringer("conn_id", client.id),
				zap.Int("connections", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.log.Info("connection closed",
					zap.Stringer("conn_id", client.id),
					zap.Int("connections", len(h.clients)),
				)
			}

		case msg := <-h.broadcast:
			h.metrics.events.WithLabelValues(string(msg.kind)).Inc()
			for client := range h.clients {
				if client == msg.sender {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					h.remove(client)
					h.metrics.dropped.Inc()
					h.log.Warn("dropping slow connection", zap.Stringer("conn_id", client.id))
				}
			}
		}
	}
}

// Broadcast queues data for every connection except sender. data is sent
// as-is.
func (h *Hub) Broadcast(sender *Client, kind Kind, data []byte) {
	select {
	case h.broadcast <- &broadcastMsg{sender: sender, kind: kind, data: data}:
	case <-h.stopped:
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.close()
	h.metrics.connections.Set(float64(len(h.clients)))
}

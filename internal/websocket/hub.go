package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub fans dashboard notifications out to every open connection. Delivery is
// best effort: a connection whose buffer is full skips the message and the
// skip is counted, both per connection and for the hub as a whole.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	dropped atomic.Uint64
	logger  *slog.Logger
}

// Stats is a point-in-time view of the hub, reported by the health endpoint.
type Stats struct {
	Clients int    `json:"clients"`
	Dropped uint64 `json:"dropped"`
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister closes the client's send channel once; later calls do nothing.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("client disconnected", "clients", n, "missed", c.missed.Load())
	}
}

// Broadcast encodes msg once and offers it to each client without blocking.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	var skipped uint64
	for c := range h.clients {
		if !c.offer(data) {
			skipped++
		}
	}
	h.mu.RUnlock()

	if skipped > 0 {
		h.dropped.Add(skipped)
		h.logger.Warn("slow clients skipped broadcast", "type", msg.Type, "skipped", skipped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped is the number of deliveries skipped since the hub started.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) Stats() Stats {
	return Stats{Clients: h.ClientCount(), Dropped: h.Dropped()}
}

package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

// Hub broadcasts one feed to its clients.
type Hub struct {
	name string
	log  *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// mu guards clients and last for readers outside Run.
	mu sync.RWMutex

	// last is replayed to new clients when replay is set.
	last   *Message
	replay bool

	running atomic.Bool
	// done is closed when Run returns.
	done chan struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Option configures a Hub
type Option func(*Hub)

// WithReplay sends the most recent broadcast to each new client
func WithReplay() Option {
	return func(h *Hub) { h.replay = true }
}

// WithLogger sets the hub logger
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// New creates a new Hub
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = log.Or(h.log, "hub").With("hub", name)
	return h
}

// Run starts the hub's main loop and blocks until ctx is done.
// This should be called in a goroutine, once
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			last := h.last
			h.mu.Unlock()
			if last != nil {
				select {
				case client.send <- *last:
				default:
				}
			}
			h.log.Info("client connected", "id", client.id, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", "id", client.id, "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			if h.replay {
				m := message
				h.last = &m
			}
			for client := range h.clients {
				if !client.wants() {
					continue
				}
				select {
				case client.send <- message:
					h.sent.Add(1)
				default:
					close(client.send)
					delete(h.clients, client)
					h.dropped.Add(1)
					h.log.Warn("dropped slow client", "id", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.log.Debug("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Text(data))
	return nil
}

// BroadcastMessage encodes and broadcasts a protocol message
func (h *Hub) BroadcastMessage(msg *protocol.Message) error {
	m, err := Encode(msg)
	if err != nil {
		return err
	}
	h.Broadcast(m)
	return nil
}

// BroadcastBinary broadcasts binary data (e.g., overlay frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Binary(data))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats contains hub statistics
type Stats struct {
	Name    string `json:"name"`
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Name:    h.name,
		Clients: h.ClientCount(),
		Sent:    h.sent.Load(),
		Dropped: h.dropped.Load(),
	}
}

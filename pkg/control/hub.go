// Package control provides the WebSocket command channel for a session
package control

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

// ClientConnection represents a connected controller
type ClientConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the controller
func (c *ClientConnection) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from controllers
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*ClientConnection
	session Session
	log     *slog.Logger

	// Stats
	commandsReceived atomic.Uint64
	commandsFailed   atomic.Uint64
	messagesSent     atomic.Uint64
}

// NewHub creates a controller hub applying commands to s
func NewHub(s Session, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*ClientConnection),
		session: s,
		log:     log.Or(logger, "control"),
	}
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/control", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Controller connection endpoint
	app.Get("/ws/control", websocket.New(h.handleClient))
	app.Get("/ws/control/:id", websocket.New(h.handleClient))
}

// handleClient handles a controller WebSocket connection
func (h *Hub) handleClient(c *websocket.Conn) {
	// Get client ID from path or generate one
	clientID := c.Params("id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := &ClientConnection{
		ID:        clientID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register client
	h.mu.Lock()
	h.clients[clientID] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("controller connected", "id", clientID, "clients", count)

	defer func() {
		h.mu.Lock()
		delete(h.clients, clientID)
		count := len(h.clients)
		h.mu.Unlock()

		h.log.Info("controller disconnected", "id", clientID, "clients", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.log.Debug("controller read error", "id", clientID, "error", err)
			return
		}

		client.mu.Lock()
		client.LastSeen = time.Now()
		client.mu.Unlock()

		h.handleMessage(client, data)
	}
}

// handleMessage applies a command and replies to the sender. State
// changes are broadcast to every other controller.
func (h *Hub) handleMessage(client *ClientConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.log.Debug("parse error", "id", client.ID, "error", err)
		reply, _ := protocol.NewErrorMessage("", err)
		h.send(client, reply)
		return
	}

	h.commandsReceived.Add(1)
	reply := Dispatch(context.Background(), h.session, msg, h.rigDone)
	if reply.Type == protocol.TypeError {
		h.commandsFailed.Add(1)
		h.log.Debug("command failed", "id", client.ID, "command", msg.Type)
	}
	h.send(client, reply)

	if reply.Type == protocol.TypeStatus && msg.Type != protocol.TypeGetStatus {
		h.broadcastExcept(client.ID, reply)
	}
}

// rigDone reports a finished rig swap to every controller
func (h *Hub) rigDone(err error) {
	var (
		msg  *protocol.Message
		merr error
	)
	if err != nil {
		msg, merr = protocol.NewErrorMessage(protocol.TypeSwapRig, err)
	} else {
		msg, merr = protocol.NewMessage(protocol.TypeStatus, h.session.Status())
	}
	if merr != nil {
		return
	}
	h.Broadcast(msg)
}

func (h *Hub) send(client *ClientConnection, msg *protocol.Message) {
	h.messagesSent.Add(1)
	if err := client.Send(msg); err != nil {
		h.log.Debug("send error", "id", client.ID, "error", err)
	}
}

// Broadcast sends a message to all connected controllers
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.broadcastExcept("", msg)
}

func (h *Hub) broadcastExcept(skip string, msg *protocol.Message) {
	h.mu.RLock()
	clients := make([]*ClientConnection, 0, len(h.clients))
	for id, c := range h.clients {
		if id != skip {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.send(c, msg)
	}
}

// GetClient returns a controller connection by ID
func (h *Hub) GetClient(id string) *ClientConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// ClientCount returns the number of connected controllers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats contains hub statistics
type Stats struct {
	ClientCount      int    `json:"client_count"`
	CommandsReceived uint64 `json:"commands_received"`
	CommandsFailed   uint64 `json:"commands_failed"`
	MessagesSent     uint64 `json:"messages_sent"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		ClientCount:      h.ClientCount(),
		CommandsReceived: h.commandsReceived.Load(),
		CommandsFailed:   h.commandsFailed.Load(),
		MessagesSent:     h.messagesSent.Load(),
	}
}

// ClientInfo contains info about a connected controller
type ClientInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetClientInfos returns info about all connected controllers
func (h *Hub) GetClientInfos() []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		c.mu.Lock()
		infos = append(infos, ClientInfo{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for controller management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	controllers := api.Group("/controllers")

	// List connected controllers
	controllers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"controllers": h.GetClientInfos(),
			"count":       h.ClientCount(),
		})
	})

	// Get hub stats
	controllers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}

package hub

import (
	"strconv"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-mocap/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Feed clients only send pings.
	maxMessageSize = 4 * 1024

	sendBuffer = 256
)

// Client is one feed subscriber.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// send is owned by the hub, which closes it on unregister.
	send chan Message
	// replies carries pongs from the read side; never closed.
	replies chan []byte

	// every > 1 forwards only each every-th broadcast. Touched only by Run.
	every uint64
	seen  uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// Every forwards one broadcast in n. Values below 2 forward all.
func Every(n int) ClientOption {
	return func(c *Client) {
		if n > 1 {
			c.every = uint64(n)
		}
	}
}

// NewClient registers conn with h.
func NewClient(h *Hub, conn *websocket.Conn, opts ...ClientOption) *Client {
	c := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		replies: make(chan []byte, 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

// Handler attaches each connection to h. The "every" query parameter
// decimates the feed for that client.
func Handler(h *Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		var opts []ClientOption
		if n, err := strconv.Atoi(conn.Query("every")); err == nil {
			opts = append(opts, Every(n))
		}
		NewClient(h, conn, opts...).Run()
	}
}

// Run pumps the connection until it closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// wants reports whether the next broadcast should reach c.
func (c *Client) wants() bool {
	if c.every == 0 {
		return true
	}
	c.seen++
	return c.seen%c.every == 1
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.answer(data)
	}
}

// answer replies to protocol pings; anything else is ignored.
func (c *Client) answer(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return
	}
	ping, err := msg.GetPingData()
	if err != nil {
		return
	}
	pong, err := protocol.NewPongMessage(c.id, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return
	}
	out, err := pong.Reply(msg).Bytes()
	if err != nil {
		return
	}
	select {
	case c.replies <- out:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if m.Format == FormatBinary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, m.Data); err != nil {
				return
			}

		case out := <-c.replies:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

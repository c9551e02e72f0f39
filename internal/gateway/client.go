package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ridepool/backend/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512

	sendBufferSize = 256
)

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	UserID uuid.UUID

	// send carries marshalled frames to the write pump.
	send chan []byte

	// rooms is maintained by the hub under its lock.
	rooms map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]bool),
	}
}

// command is the inbound frame clients send: room membership changes
// and typing indicators. Everything stateful goes through the REST
// API.
type command struct {
	Action string    `json:"action"`
	ID     uuid.UUID `json:"id"`
}

// ReadPump consumes inbound frames until the connection drops, then
// unregisters the client. Runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.logger.Warn("malformed command", zap.Error(err))
			continue
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd command) {
	if cmd.ID == uuid.Nil {
		return
	}
	switch cmd.Action {
	case "join_chat":
		c.hub.JoinRoom(c, events.ChatRoom(cmd.ID))
	case "leave_chat":
		c.hub.LeaveRoom(c, events.ChatRoom(cmd.ID))
	case "join_ride":
		c.hub.JoinRoom(c, events.RideRoom(cmd.ID))
	case "typing":
		c.hub.RelayTyping(c, cmd.ID)
	default:
		c.logger.Warn("unknown command", zap.String("action", cmd.Action))
	}
}

// WritePump flushes the send channel to the connection and keeps the
// connection alive with pings. Runs in its own goroutine per
// connection; exits when the hub closes the send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

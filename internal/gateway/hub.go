// Package gateway is the websocket fan-out process. It keeps a local
// room-membership table (socket -> rooms), receives addressed event
// envelopes from the API server over Redis, and pushes them to every
// connected subscriber of the target room. Delivery is at-most-once
// per connection; a disconnected client catches up by refetching
// state.
package gateway

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/events"
)

// outbound is the frame written to clients.
type outbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register adds a connection and subscribes it to its personal room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	h.joinRoom(c, events.UserRoom(c.UserID))

	h.logger.Info("client connected", zap.String("user_id", c.UserID.String()))
}

// Unregister drops a connection and removes it from every room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	for room, members := range h.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	h.logger.Info("client disconnected", zap.String("user_id", c.UserID.String()))
}

// JoinRoom subscribes a connection to a room. Idempotent.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinRoom(c, room)
}

func (h *Hub) joinRoom(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

// LeaveRoom unsubscribes a connection from a room. Idempotent.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Broadcast delivers one envelope: to every connection for the
// broadcast room, otherwise to the target room's members. A client
// whose send buffer is full is dropped rather than blocking the rest
// of the room.
func (h *Hub) Broadcast(ev events.Event) {
	frame, err := json.Marshal(outbound{Type: ev.Type, Payload: ev.Payload})
	if err != nil {
		h.logger.Error("marshal outbound frame", zap.Error(err))
		return
	}
	h.deliver(ev.Room, frame, nil)
}

// RelayTyping pushes a transient typing indicator to the other
// members of a chat room. It stays local to this gateway instance;
// typing never crosses Redis or touches the store.
func (h *Hub) RelayTyping(from *Client, joinID uuid.UUID) {
	payload, err := json.Marshal(map[string]any{
		"join_request_id": joinID,
		"user_id":         from.UserID,
	})
	if err != nil {
		h.logger.Error("marshal typing payload", zap.Error(err))
		return
	}
	frame, err := json.Marshal(outbound{Type: events.TypeUserTyping, Payload: payload})
	if err != nil {
		h.logger.Error("marshal outbound frame", zap.Error(err))
		return
	}
	h.deliver(events.ChatRoom(joinID), frame, from)
}

// deliver sends a frame to a room's members, skipping skip if set.
// Sends happen under the read lock: Unregister closes send channels
// under the write lock, so a concurrent disconnect cannot close a
// channel between the membership lookup and the send. Clients with a
// full buffer are collected and dropped after the lock is released.
func (h *Hub) deliver(room string, frame []byte, skip *Client) {
	h.mu.RLock()
	members := h.rooms[room]
	if room == events.RoomBroadcast {
		members = h.clients
	}

	var slow []*Client
	for c := range members {
		if c == skip {
			continue
		}
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", zap.String("user_id", c.UserID.String()))
		h.Unregister(c)
	}
}

// RoomSize reports the current membership of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Package events defines the real-time notification contract between
// the API server and the websocket gateway. The server publishes
// addressed envelopes; the gateway fans each one out to the sockets
// subscribed to its room. Delivery is fire-and-forget: a publish
// failure is logged, never propagated into the state change that
// produced it.
package events

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Channel is the Redis pub/sub channel both processes agree on.
const Channel = "ridepool:events"

// Event type names, as delivered to connected clients.
const (
	TypeNewMessage      = "new_message"
	TypeNewJoinRequest  = "new_join_request"
	TypeRequestAccepted = "request_accepted"
	TypeRequestRejected = "request_rejected"
	TypeRideFilled      = "ride_filled"
	TypeMessageEdited   = "message_edited"
	TypeMessageDeleted  = "message_deleted"
	TypeMessagesRead    = "messages_read"
	TypeNewRide         = "new_ride"
	TypeRideCancelled   = "ride_cancelled"

	// TypeUserTyping is relayed between chat room members by the
	// gateway itself; the API server never publishes it.
	TypeUserTyping = "user_typing"
)

// RoomBroadcast addresses every connected client.
const RoomBroadcast = "broadcast"

// UserRoom is a user's personal notification room. Every socket joins
// its own on connect.
func UserRoom(userID uuid.UUID) string { return "user:" + userID.String() }

// RideRoom holds everyone currently viewing a ride.
func RideRoom(rideID uuid.UUID) string { return "ride:" + rideID.String() }

// ChatRoom holds the two parties of a join request's thread.
func ChatRoom(joinID uuid.UUID) string { return "chat:" + joinID.String() }

// Event is one addressed notification envelope.
type Event struct {
	Room    string          `json:"room"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// New builds an envelope, marshalling the payload. A payload that
// cannot be marshalled is a programming error; it comes back as error
// so the publisher can log it and move on.
func New(room, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Room: room, Type: eventType, Payload: raw}, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RideStatus is the lifecycle state of a posted ride.
// Valid transitions: open -> filled, open -> cancelled.
// Filled and cancelled are terminal; rides are never deleted.
type RideStatus string

const (
	RideOpen      RideStatus = "open"
	RideFilled    RideStatus = "filled"
	RideCancelled RideStatus = "cancelled"
)

// JoinStatus is the state of a join request.
// Valid transitions: pending -> accepted, pending -> rejected.
type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinAccepted JoinStatus = "accepted"
	JoinRejected JoinStatus = "rejected"
)

// User is a registered account. PasswordHash is owned by the auth
// layer and never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ride is a posted trip offer. Seats is informational: accepting one
// join request always fills the ride regardless of the seat count.
type Ride struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	TimeStart time.Time  `json:"time_start"`
	TimeEnd   time.Time  `json:"time_end"`
	Seats     int        `json:"seats"`
	Status    RideStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// RideSummary is a ride plus the aggregates an owner's dashboard
// needs. Built by the service layer, never stored.
type RideSummary struct {
	Ride
	PendingRequestCount int `json:"pending_request_count"`
}

// JoinRequest is one requester's bid to join one ride. At most one
// request may exist per (RideID, RequesterID) pair, and at most one
// request per ride ever reaches JoinAccepted.
//
// LastReadOwner and LastReadRequester are the two parties' read
// cursors over the request's chat thread.
type JoinRequest struct {
	ID                uuid.UUID  `json:"id"`
	RideID            uuid.UUID  `json:"ride_id"`
	RequesterID       uuid.UUID  `json:"requester_id"`
	Status            JoinStatus `json:"status"`
	LastReadOwner     time.Time  `json:"last_read_owner"`
	LastReadRequester time.Time  `json:"last_read_requester"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ChatMessage belongs to exactly one join request's thread. Only the
// ride owner and the requester may read or write it. System messages
// are authored by the engine on the owner's behalf.
type ChatMessage struct {
	ID            uuid.UUID `json:"id"`
	JoinRequestID uuid.UUID `json:"join_request_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	Message       string    `json:"message"`
	IsSystem      bool      `json:"is_system_message"`
	IsEdited      bool      `json:"is_edited"`
	CreatedAt     time.Time `json:"created_at"`
}

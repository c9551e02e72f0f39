package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
)

// Sentinel errors for constraint violations the service layer turns
// into caller-facing conflicts.
var (
	ErrDuplicateJoinRequest = errors.New("join request already exists for this ride and requester")
	ErrEmailTaken           = errors.New("email already registered")
)

// RideRepository handles ride persistence. Lookup methods return
// nil, nil when the ride does not exist.
type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Ride, error)

	// GetForUpdate is GetByID with the row locked for the duration of
	// the surrounding transaction. Outside a transaction it behaves
	// like GetByID. The accept engine, cancel, and the expiry sweep
	// all take this lock first, which serializes every state
	// transition touching one ride.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error)

	// ListOpen returns open rides ending after now, excluding those
	// owned by excludeOwner, ordered by start time ascending.
	ListOpen(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]models.Ride, error)

	// ListByOwner returns all of one owner's rides, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ride, error)

	// ListExpired returns open rides whose end time has passed.
	ListExpired(ctx context.Context, now time.Time) ([]models.Ride, error)

	SetStatus(ctx context.Context, id uuid.UUID, status models.RideStatus) error
}

// JoinRequestRepository handles join request persistence.
type JoinRequestRepository interface {
	// Create inserts a pending request. Returns
	// ErrDuplicateJoinRequest when a request for the same
	// (ride, requester) pair already exists.
	Create(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error)

	GetByRideAndRequester(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error)

	// ListByRide returns all requests on a ride, newest first.
	ListByRide(ctx context.Context, rideID uuid.UUID) ([]models.JoinRequest, error)

	// ListPendingByRide returns pending requests on a ride, excluding
	// the given request ID (uuid.Nil excludes nothing).
	ListPendingByRide(ctx context.Context, rideID, exclude uuid.UUID) ([]models.JoinRequest, error)

	// ListByRequester returns one user's requests, newest first.
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.JoinRequest, error)

	CountPendingByRide(ctx context.Context, rideID uuid.UUID) (int, error)

	SetStatus(ctx context.Context, id uuid.UUID, status models.JoinStatus) error

	// SetLastRead advances one party's read cursor. owner selects
	// which cursor moves.
	SetLastRead(ctx context.Context, id uuid.UUID, owner bool, at time.Time) error
}

// MessageRepository handles chat message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)

	// ListByJoinRequest returns a thread's messages, oldest first.
	ListByJoinRequest(ctx context.Context, joinID uuid.UUID) ([]models.ChatMessage, error)

	// UpdateText replaces the message body and marks it edited.
	UpdateText(ctx context.Context, id uuid.UUID, text string) (*models.ChatMessage, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// CountSince counts a thread's messages created after since and
	// not sent by excludeSender. Drives unread badges.
	CountSince(ctx context.Context, joinID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int, error)
}

// UserRepository handles account records.
type UserRepository interface {
	// Create inserts a user. Returns ErrEmailTaken on a duplicate
	// email.
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store aggregates the entity repositories and provides the atomic
// multi-record write the accept engine depends on.
type Store interface {
	Rides() RideRepository
	Joins() JoinRequestRepository
	Messages() MessageRepository
	Users() UserRepository

	// WithTx runs fn against a transaction-scoped view of the store.
	// If fn returns an error, none of its writes are visible.
	WithTx(ctx context.Context, fn func(Store) error) error
}

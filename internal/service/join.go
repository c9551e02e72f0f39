package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/apperr"
	"ridepool/backend/internal/events"
	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

// System messages the engine writes into chat threads.
const (
	msgRideConfirmed = "🎉 Ride confirmed! You can now coordinate your trip."
	msgRideFilled    = "This ride has been filled. Thanks for your interest!"
	msgRideExpired   = "This ride has expired."
)

// JoinService is the join-request state machine: request creation
// with duplicate suppression, and the atomic accept transition.
type JoinService struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

func NewJoinService(store repository.Store, pub events.Publisher, logger *zap.Logger) *JoinService {
	return &JoinService{store: store, events: pub, logger: logger}
}

// RequestJoin creates a pending request for a ride. Calling it again
// for the same (ride, requester) pair returns the existing request
// with created=false instead of an error. The ride lock serializes the
// open check against a concurrent accept or cancel, so a new request
// can never land on a ride the rejection cascade has already
// processed.
func (s *JoinService) RequestJoin(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, bool, error) {
	var (
		req     *models.JoinRequest
		ownerID uuid.UUID
		created bool
	)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ride, err := tx.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return apperr.Internal("get ride", err)
		}
		if ride == nil {
			return apperr.NotFound("ride not found")
		}
		if ride.OwnerID == requesterID {
			return apperr.Validation("cannot join your own ride")
		}
		if ride.Status != models.RideOpen {
			return apperr.Conflict("this ride is no longer available")
		}
		if !time.Now().Before(ride.TimeEnd) {
			return apperr.Conflict("this ride has expired")
		}

		existing, err := tx.Joins().GetByRideAndRequester(ctx, rideID, requesterID)
		if err != nil {
			return apperr.Internal("check existing join request", err)
		}
		if existing != nil {
			req = existing
			return nil
		}

		req, err = tx.Joins().Create(ctx, rideID, requesterID)
		if err != nil {
			return err
		}
		ownerID = ride.OwnerID
		created = true
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateJoinRequest) {
		// Lost a race with an identical request; return the winner.
		existing, lookupErr := s.store.Joins().GetByRideAndRequester(ctx, rideID, requesterID)
		if lookupErr != nil || existing == nil {
			return nil, false, apperr.Internal("get racing join request", lookupErr)
		}
		return existing, false, nil
	}
	if err != nil {
		// Create's error is passed through raw to keep the duplicate
		// sentinel matchable; everything else is already classified.
		if errors.As(err, new(*apperr.Error)) {
			return nil, false, err
		}
		return nil, false, apperr.Internal("create join request", err)
	}
	if !created {
		return req, false, nil
	}

	s.events.Publish(ctx, events.UserRoom(ownerID), events.TypeNewJoinRequest, req)
	s.events.Publish(ctx, events.RideRoom(rideID), events.TypeNewJoinRequest, req)

	return req, true, nil
}

// AcceptResult reports what the accept transaction did.
type AcceptResult struct {
	AcceptedRequest *models.JoinRequest `json:"accepted_request"`
	RejectedCount   int                 `json:"rejected_count"`
}

// Accept approves one pending request and fills the ride, rejecting
// every other pending request on it, all in a single transaction. The
// ride row lock taken up front serializes concurrent accepts: the
// loser re-reads the ride as filled and fails the open check with a
// conflict, never a partial write. Events go out only after commit.
func (s *JoinService) Accept(ctx context.Context, joinID, actingUserID uuid.UUID) (*AcceptResult, error) {
	var (
		accepted *models.JoinRequest
		ride     *models.Ride
		rejected []models.JoinRequest
		sysMsg   *models.ChatMessage
	)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		req, err := tx.Joins().GetByID(ctx, joinID)
		if err != nil {
			return apperr.Internal("get join request", err)
		}
		if req == nil {
			return apperr.NotFound("join request not found")
		}

		ride, err = tx.Rides().GetForUpdate(ctx, req.RideID)
		if err != nil {
			return apperr.Internal("get ride", err)
		}
		if ride == nil {
			return apperr.NotFound("ride not found")
		}
		if ride.OwnerID != actingUserID {
			return apperr.Forbidden("only the ride owner can accept requests")
		}
		if ride.Status != models.RideOpen {
			return apperr.Conflict("this ride is no longer open")
		}

		// Re-read now that the ride lock is held: the first read
		// predates the lock and a concurrent transition could have
		// processed this request in between.
		req, err = tx.Joins().GetByID(ctx, joinID)
		if err != nil || req == nil {
			return apperr.Internal("reload join request", err)
		}
		if req.Status != models.JoinPending {
			return apperr.Conflict("this request has already been processed")
		}

		if err := tx.Joins().SetStatus(ctx, req.ID, models.JoinAccepted); err != nil {
			return apperr.Internal("accept join request", err)
		}

		sysMsg, err = tx.Messages().Create(ctx, &models.ChatMessage{
			JoinRequestID: req.ID,
			SenderID:      ride.OwnerID,
			Message:       msgRideConfirmed,
			IsSystem:      true,
		})
		if err != nil {
			return apperr.Internal("write confirmation message", err)
		}

		rejected, err = tx.Joins().ListPendingByRide(ctx, ride.ID, req.ID)
		if err != nil {
			return apperr.Internal("list competing requests", err)
		}
		for _, other := range rejected {
			if err := tx.Joins().SetStatus(ctx, other.ID, models.JoinRejected); err != nil {
				return apperr.Internal("reject competing request", err)
			}
			if _, err := tx.Messages().Create(ctx, &models.ChatMessage{
				JoinRequestID: other.ID,
				SenderID:      ride.OwnerID,
				Message:       msgRideFilled,
				IsSystem:      true,
			}); err != nil {
				return apperr.Internal("write rejection message", err)
			}
		}

		if err := tx.Rides().SetStatus(ctx, ride.ID, models.RideFilled); err != nil {
			return apperr.Internal("fill ride", err)
		}

		req.Status = models.JoinAccepted
		ride.Status = models.RideFilled
		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit fan-out. Best effort: a missed notification is
	// recovered on the next state fetch.
	s.events.Publish(ctx, events.UserRoom(accepted.RequesterID), events.TypeRequestAccepted, map[string]any{
		"join_request": accepted,
		"ride":         ride,
	})
	s.events.Publish(ctx, events.ChatRoom(accepted.ID), events.TypeNewMessage, sysMsg)
	for _, other := range rejected {
		s.events.Publish(ctx, events.UserRoom(other.RequesterID), events.TypeRequestRejected, map[string]any{
			"ride_id": ride.ID,
		})
	}
	s.events.Publish(ctx, events.RideRoom(ride.ID), events.TypeRideFilled, map[string]any{
		"ride_id": ride.ID,
	})

	return &AcceptResult{AcceptedRequest: accepted, RejectedCount: len(rejected)}, nil
}

// ListMine returns a requester's join requests, newest first.
func (s *JoinService) ListMine(ctx context.Context, requesterID uuid.UUID) ([]models.JoinRequest, error) {
	requests, err := s.store.Joins().ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperr.Internal("list my join requests", err)
	}
	return requests, nil
}

// ListForRide returns every request on a ride. Owner only.
func (s *JoinService) ListForRide(ctx context.Context, rideID, actingUserID uuid.UUID) ([]models.JoinRequest, error) {
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, apperr.Internal("get ride", err)
	}
	if ride == nil {
		return nil, apperr.NotFound("ride not found")
	}
	if ride.OwnerID != actingUserID {
		return nil, apperr.Forbidden("only the ride owner can view all requests")
	}

	requests, err := s.store.Joins().ListByRide(ctx, rideID)
	if err != nil {
		return nil, apperr.Internal("list join requests", err)
	}
	return requests, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/apperr"
	"ridepool/backend/internal/events"
	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

const maxLocationLen = 100

// RideService owns the ride lifecycle: creation, listing, owner
// cancellation, and the periodic expiry sweep.
type RideService struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

func NewRideService(store repository.Store, pub events.Publisher, logger *zap.Logger) *RideService {
	return &RideService{store: store, events: pub, logger: logger}
}

// CreateRideInput is the caller-controlled part of a new ride.
type CreateRideInput struct {
	From      string
	To        string
	TimeStart time.Time
	TimeEnd   time.Time
	Seats     int
}

func (s *RideService) Create(ctx context.Context, ownerID uuid.UUID, in CreateRideInput) (*models.Ride, error) {
	from := strings.TrimSpace(in.From)
	to := strings.TrimSpace(in.To)

	switch {
	case from == "" || to == "":
		return nil, apperr.Validation("starting point and destination are required")
	case len(from) > maxLocationLen || len(to) > maxLocationLen:
		return nil, apperr.Validation("location cannot exceed 100 characters")
	case in.TimeStart.Before(time.Now()):
		return nil, apperr.Validation("start time cannot be in the past")
	case !in.TimeEnd.After(in.TimeStart):
		return nil, apperr.Validation("end time must be after start time")
	}

	seats := in.Seats
	if seats == 0 {
		seats = 1
	}
	if seats < 1 || seats > 4 {
		return nil, apperr.Validation("seats must be between 1 and 4")
	}

	ride, err := s.store.Rides().Create(ctx, &models.Ride{
		OwnerID:   ownerID,
		From:      from,
		To:        to,
		TimeStart: in.TimeStart,
		TimeEnd:   in.TimeEnd,
		Seats:     seats,
		Status:    models.RideOpen,
	})
	if err != nil {
		return nil, apperr.Internal("create ride", err)
	}

	// Announce to everyone; open-ride listings refresh off this.
	s.events.Publish(ctx, events.RoomBroadcast, events.TypeNewRide, ride)

	return ride, nil
}

// ListOpen returns joinable rides for a user: open, not yet ended, and
// not their own.
func (s *RideService) ListOpen(ctx context.Context, excludeOwnerID uuid.UUID) ([]models.Ride, error) {
	rides, err := s.store.Rides().ListOpen(ctx, excludeOwnerID, time.Now())
	if err != nil {
		return nil, apperr.Internal("list open rides", err)
	}
	return rides, nil
}

// ListMine returns an owner's rides with the pending request count
// each one has accumulated.
func (s *RideService) ListMine(ctx context.Context, ownerID uuid.UUID) ([]models.RideSummary, error) {
	rides, err := s.store.Rides().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("list my rides", err)
	}

	summaries := make([]models.RideSummary, 0, len(rides))
	for _, ride := range rides {
		pending, err := s.store.Joins().CountPendingByRide(ctx, ride.ID)
		if err != nil {
			return nil, apperr.Internal("count pending requests", err)
		}
		summaries = append(summaries, models.RideSummary{Ride: ride, PendingRequestCount: pending})
	}
	return summaries, nil
}

// RideDetail is one ride from a particular caller's point of view.
type RideDetail struct {
	Ride      *models.Ride        `json:"ride"`
	MyRequest *models.JoinRequest `json:"my_request,omitempty"`
	IsOwner   bool                `json:"is_owner"`
}

func (s *RideService) Get(ctx context.Context, rideID, callerID uuid.UUID) (*RideDetail, error) {
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, apperr.Internal("get ride", err)
	}
	if ride == nil {
		return nil, apperr.NotFound("ride not found")
	}

	myRequest, err := s.store.Joins().GetByRideAndRequester(ctx, rideID, callerID)
	if err != nil {
		return nil, apperr.Internal("get own join request", err)
	}

	return &RideDetail{
		Ride:      ride,
		MyRequest: myRequest,
		IsOwner:   ride.OwnerID == callerID,
	}, nil
}

// Cancel transitions an open ride to cancelled. Only the owner may
// cancel, and a filled ride stays filled.
func (s *RideService) Cancel(ctx context.Context, rideID, callerID uuid.UUID) (*models.Ride, error) {
	var cancelled *models.Ride

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ride, err := tx.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return apperr.Internal("get ride", err)
		}
		if ride == nil {
			return apperr.NotFound("ride not found")
		}
		if ride.OwnerID != callerID {
			return apperr.Forbidden("only the ride owner can cancel this ride")
		}
		if ride.Status == models.RideFilled {
			return apperr.Conflict("cannot cancel a filled ride")
		}

		if err := tx.Rides().SetStatus(ctx, rideID, models.RideCancelled); err != nil {
			return apperr.Internal("cancel ride", err)
		}

		ride.Status = models.RideCancelled
		cancelled = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.RoomBroadcast, events.TypeRideCancelled, map[string]any{
		"ride_id": rideID,
	})

	return cancelled, nil
}

// ExpireSweep cancels every open ride whose end time has passed,
// rejecting its pending requests and appending an expiry system
// message to each of their threads. One ride's failure is logged and
// does not stop the sweep. Returns the number of rides expired.
func (s *RideService) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.Rides().ListExpired(ctx, now)
	if err != nil {
		return 0, apperr.Internal("list expired rides", err)
	}

	count := 0
	for _, ride := range expired {
		if err := s.expireRide(ctx, ride.ID); err != nil {
			s.logger.Error("expire ride failed",
				zap.String("ride_id", ride.ID.String()),
				zap.Error(err),
			)
			continue
		}
		count++
	}

	if count > 0 {
		s.logger.Info("expired rides", zap.Int("count", count))
	}
	return count, nil
}

func (s *RideService) expireRide(ctx context.Context, rideID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		ride, err := tx.Rides().GetForUpdate(ctx, rideID)
		if err != nil {
			return fmt.Errorf("get ride: %w", err)
		}
		if ride == nil || ride.Status != models.RideOpen {
			// Raced with an accept or a cancel since the scan.
			return nil
		}

		if err := tx.Rides().SetStatus(ctx, rideID, models.RideCancelled); err != nil {
			return err
		}

		pending, err := tx.Joins().ListPendingByRide(ctx, rideID, uuid.Nil)
		if err != nil {
			return err
		}
		for _, req := range pending {
			if err := tx.Joins().SetStatus(ctx, req.ID, models.JoinRejected); err != nil {
				return err
			}
			if _, err := tx.Messages().Create(ctx, &models.ChatMessage{
				JoinRequestID: req.ID,
				SenderID:      ride.OwnerID,
				Message:       msgRideExpired,
				IsSystem:      true,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunSweeper runs an immediate sweep and then repeats on the given
// interval until ctx is cancelled.
func (s *RideService) RunSweeper(ctx context.Context, interval time.Duration) {
	s.logger.Info("expiry sweeper started", zap.Duration("interval", interval))

	if _, err := s.ExpireSweep(ctx, time.Now()); err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.ExpireSweep(ctx, time.Now()); err != nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

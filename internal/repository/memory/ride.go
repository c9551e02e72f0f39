package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
)

type rideStore struct {
	s *Store
}

func (r *rideStore) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	defer r.s.lock()()

	created := *ride
	created.ID = uuid.New()
	created.CreatedAt = r.s.stamp()

	r.s.st.rides[created.ID] = created
	r.s.st.track(created.ID)
	return &created, nil
}

func (r *rideStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	defer r.s.lock()()

	ride, ok := r.s.st.rides[id]
	if !ok {
		return nil, nil
	}
	return &ride, nil
}

func (r *rideStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	// WithTx already holds the store lock, which is as strong as a
	// row lock here.
	return r.GetByID(ctx, id)
}

func (r *rideStore) ListOpen(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]models.Ride, error) {
	defer r.s.lock()()

	rides := r.s.filterRides(func(ride models.Ride) bool {
		return ride.Status == models.RideOpen && ride.TimeEnd.After(now) && ride.OwnerID != excludeOwner
	})
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].TimeStart.Before(rides[j].TimeStart)
	})
	return rides, nil
}

func (r *rideStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ride, error) {
	defer r.s.lock()()

	rides := r.s.filterRides(func(ride models.Ride) bool {
		return ride.OwnerID == ownerID
	})
	r.s.sortNewestFirst(rides)
	return rides, nil
}

func (r *rideStore) ListExpired(ctx context.Context, now time.Time) ([]models.Ride, error) {
	defer r.s.lock()()

	rides := r.s.filterRides(func(ride models.Ride) bool {
		return ride.Status == models.RideOpen && ride.TimeEnd.Before(now)
	})
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].TimeEnd.Before(rides[j].TimeEnd)
	})
	return rides, nil
}

func (r *rideStore) SetStatus(ctx context.Context, id uuid.UUID, status models.RideStatus) error {
	defer r.s.lock()()

	ride, ok := r.s.st.rides[id]
	if !ok {
		return errNotFound("ride", id)
	}
	ride.Status = status
	r.s.st.rides[id] = ride
	return nil
}

func (s *Store) filterRides(keep func(models.Ride) bool) []models.Ride {
	out := make([]models.Ride, 0)
	for _, ride := range s.st.rides {
		if keep(ride) {
			out = append(out, ride)
		}
	}
	return out
}

func (s *Store) sortNewestFirst(rides []models.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if !rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].CreatedAt.After(rides[j].CreatedAt)
		}
		return s.st.order[rides[i].ID] > s.st.order[rides[j].ID]
	})
}

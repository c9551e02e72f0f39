package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

func errNotFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s not found", kind, id)
}

type joinStore struct {
	s *Store
}

func (j *joinStore) Create(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error) {
	defer j.s.lock()()

	for _, existing := range j.s.st.joins {
		if existing.RideID == rideID && existing.RequesterID == requesterID {
			return nil, repository.ErrDuplicateJoinRequest
		}
	}

	now := j.s.stamp()
	created := models.JoinRequest{
		ID:                uuid.New(),
		RideID:            rideID,
		RequesterID:       requesterID,
		Status:            models.JoinPending,
		LastReadOwner:     now,
		LastReadRequester: now,
		CreatedAt:         now,
	}
	j.s.st.joins[created.ID] = created
	j.s.st.track(created.ID)
	return &created, nil
}

func (j *joinStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error) {
	defer j.s.lock()()

	req, ok := j.s.st.joins[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (j *joinStore) GetByRideAndRequester(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error) {
	defer j.s.lock()()

	for _, req := range j.s.st.joins {
		if req.RideID == rideID && req.RequesterID == requesterID {
			r := req
			return &r, nil
		}
	}
	return nil, nil
}

func (j *joinStore) ListByRide(ctx context.Context, rideID uuid.UUID) ([]models.JoinRequest, error) {
	defer j.s.lock()()

	requests := j.filter(func(req models.JoinRequest) bool {
		return req.RideID == rideID
	})
	j.sortNewestFirst(requests)
	return requests, nil
}

func (j *joinStore) ListPendingByRide(ctx context.Context, rideID, exclude uuid.UUID) ([]models.JoinRequest, error) {
	defer j.s.lock()()

	requests := j.filter(func(req models.JoinRequest) bool {
		return req.RideID == rideID && req.Status == models.JoinPending && req.ID != exclude
	})
	sort.Slice(requests, func(a, b int) bool {
		return j.s.st.order[requests[a].ID] < j.s.st.order[requests[b].ID]
	})
	return requests, nil
}

func (j *joinStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.JoinRequest, error) {
	defer j.s.lock()()

	requests := j.filter(func(req models.JoinRequest) bool {
		return req.RequesterID == requesterID
	})
	j.sortNewestFirst(requests)
	return requests, nil
}

func (j *joinStore) CountPendingByRide(ctx context.Context, rideID uuid.UUID) (int, error) {
	defer j.s.lock()()

	count := 0
	for _, req := range j.s.st.joins {
		if req.RideID == rideID && req.Status == models.JoinPending {
			count++
		}
	}
	return count, nil
}

func (j *joinStore) SetStatus(ctx context.Context, id uuid.UUID, status models.JoinStatus) error {
	defer j.s.lock()()

	req, ok := j.s.st.joins[id]
	if !ok {
		return errNotFound("join request", id)
	}
	req.Status = status
	j.s.st.joins[id] = req
	return nil
}

func (j *joinStore) SetLastRead(ctx context.Context, id uuid.UUID, owner bool, at time.Time) error {
	defer j.s.lock()()

	req, ok := j.s.st.joins[id]
	if !ok {
		return errNotFound("join request", id)
	}
	if owner {
		req.LastReadOwner = at
	} else {
		req.LastReadRequester = at
	}
	j.s.st.joins[id] = req
	return nil
}

func (j *joinStore) filter(keep func(models.JoinRequest) bool) []models.JoinRequest {
	out := make([]models.JoinRequest, 0)
	for _, req := range j.s.st.joins {
		if keep(req) {
			out = append(out, req)
		}
	}
	return out
}

func (j *joinStore) sortNewestFirst(requests []models.JoinRequest) {
	sort.Slice(requests, func(a, b int) bool {
		if !requests[a].CreatedAt.Equal(requests[b].CreatedAt) {
			return requests[a].CreatedAt.After(requests[b].CreatedAt)
		}
		return j.s.st.order[requests[a].ID] > j.s.st.order[requests[b].ID]
	})
}

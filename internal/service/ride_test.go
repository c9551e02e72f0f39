package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridepool/backend/internal/apperr"
	"ridepool/backend/internal/events"
	"ridepool/backend/internal/models"
)

func TestCreateRideValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")

	start := time.Now().Add(time.Hour)
	valid := CreateRideInput{
		From:      "Campus North",
		To:        "Central Station",
		TimeStart: start,
		TimeEnd:   start.Add(time.Hour),
		Seats:     2,
	}

	tests := []struct {
		name   string
		mutate func(*CreateRideInput)
	}{
		{"missing origin", func(in *CreateRideInput) { in.From = "   " }},
		{"missing destination", func(in *CreateRideInput) { in.To = "" }},
		{"origin too long", func(in *CreateRideInput) {
			long := make([]byte, 101)
			for i := range long {
				long[i] = 'a'
			}
			in.From = string(long)
		}},
		{"start in the past", func(in *CreateRideInput) { in.TimeStart = time.Now().Add(-time.Minute) }},
		{"end equals start", func(in *CreateRideInput) { in.TimeEnd = in.TimeStart }},
		{"end before start", func(in *CreateRideInput) { in.TimeEnd = in.TimeStart.Add(-time.Minute) }},
		{"too many seats", func(in *CreateRideInput) { in.Seats = 5 }},
		{"negative seats", func(in *CreateRideInput) { in.Seats = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := env.rides.Create(context.Background(), owner, in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	t.Run("end one second after start is enough", func(t *testing.T) {
		in := valid
		in.TimeEnd = in.TimeStart.Add(time.Second)
		ride, err := env.rides.Create(context.Background(), owner, in)
		require.NoError(t, err)
		assert.Equal(t, models.RideOpen, ride.Status)
	})

	t.Run("zero seats defaults to one", func(t *testing.T) {
		in := valid
		in.Seats = 0
		ride, err := env.rides.Create(context.Background(), owner, in)
		require.NoError(t, err)
		assert.Equal(t, 1, ride.Seats)
	})
}

func TestCreateRideBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")

	env.openRide(t, owner)

	published := env.pub.byType(events.TypeNewRide)
	require.Len(t, published, 1)
	assert.Equal(t, events.RoomBroadcast, published[0].Room)
}

func TestListOpenExcludesOwnRides(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	other := env.user(t, "other")

	mine := env.openRide(t, owner)
	theirs := env.openRide(t, other)
	env.expiredRide(t, other)

	visible, err := env.rides.ListOpen(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, theirs.ID, visible[0].ID)

	visible, err = env.rides.ListOpen(context.Background(), other)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)
}

func TestListMineCountsPendingRequests(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	ride := env.openRide(t, owner)

	env.pendingRequest(t, ride.ID, env.user(t, "alice"))
	env.pendingRequest(t, ride.ID, env.user(t, "bob"))

	summaries, err := env.rides.ListMine(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].PendingRequestCount)
}

func TestGetRideDetail(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	requester := env.user(t, "requester")
	ride := env.openRide(t, owner)
	req := env.pendingRequest(t, ride.ID, requester)

	detail, err := env.rides.Get(context.Background(), ride.ID, requester)
	require.NoError(t, err)
	assert.False(t, detail.IsOwner)
	require.NotNil(t, detail.MyRequest)
	assert.Equal(t, req.ID, detail.MyRequest.ID)

	detail, err = env.rides.Get(context.Background(), ride.ID, owner)
	require.NoError(t, err)
	assert.True(t, detail.IsOwner)
	assert.Nil(t, detail.MyRequest)

	_, err = env.rides.Get(context.Background(), uuid.New(), owner)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCancelRide(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	ride := env.openRide(t, owner)

	_, err := env.rides.Cancel(context.Background(), ride.ID, stranger)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	cancelled, err := env.rides.Cancel(context.Background(), ride.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, cancelled.Status)

	published := env.pub.byType(events.TypeRideCancelled)
	require.Len(t, published, 1)
	assert.Equal(t, events.RoomBroadcast, published[0].Room)
}

func TestCancelFilledRideRefused(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	ride := env.openRide(t, owner)
	req := env.pendingRequest(t, ride.ID, env.user(t, "requester"))

	_, err := env.joins.Accept(context.Background(), req.ID, owner)
	require.NoError(t, err)

	_, err = env.rides.Cancel(context.Background(), ride.ID, owner)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	stored, err := env.store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideFilled, stored.Status)
}

func TestExpireSweep(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	requester := env.user(t, "requester")

	stale := env.expiredRide(t, owner)
	fresh := env.openRide(t, owner)

	req, err := env.store.Joins().Create(context.Background(), stale.ID, requester)
	require.NoError(t, err)

	count, err := env.rides.ExpireSweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ride, err := env.store.Rides().GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, ride.Status)

	ride, err = env.store.Rides().GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideOpen, ride.Status)

	swept, err := env.store.Joins().GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRejected, swept.Status)

	messages, err := env.store.Messages().ListByJoinRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsSystem)
	assert.Equal(t, msgRideExpired, messages[0].Message)

	// A second pass finds nothing left to expire.
	count, err = env.rides.ExpireSweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestExpireSweepSkipsRidesFilledSinceScan(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	ride := env.openRide(t, owner)
	req := env.pendingRequest(t, ride.ID, env.user(t, "requester"))

	_, err := env.joins.Accept(context.Background(), req.ID, owner)
	require.NoError(t, err)

	// Sweep with a cutoff past the ride's window. The ride is filled,
	// not open, so it must be left alone.
	count, err := env.rides.ExpireSweep(context.Background(), ride.TimeEnd.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	stored, err := env.store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideFilled, stored.Status)
}

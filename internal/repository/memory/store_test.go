package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

func seedRide(t *testing.T, store *Store, status models.RideStatus) *models.Ride {
	t.Helper()
	ride, err := store.Rides().Create(context.Background(), &models.Ride{
		OwnerID:   uuid.New(),
		From:      "A",
		To:        "B",
		TimeStart: time.Now().Add(time.Hour),
		TimeEnd:   time.Now().Add(2 * time.Hour),
		Seats:     1,
		Status:    status,
	})
	require.NoError(t, err)
	return ride
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ride := seedRide(t, store, models.RideOpen)
	boom := errors.New("boom")

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		require.NoError(t, tx.Rides().SetStatus(context.Background(), ride.ID, models.RideFilled))

		// The write is visible inside the transaction.
		inside, err := tx.Rides().GetByID(context.Background(), ride.ID)
		require.NoError(t, err)
		require.Equal(t, models.RideFilled, inside.Status)

		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideOpen, after.Status)
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ride := seedRide(t, store, models.RideOpen)

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		return tx.Rides().SetStatus(context.Background(), ride.ID, models.RideCancelled)
	})
	require.NoError(t, err)

	after, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, after.Status)
}

func TestNestedWithTxJoinsOuter(t *testing.T) {
	store := NewStore()
	ride := seedRide(t, store, models.RideOpen)
	boom := errors.New("boom")

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		if err := tx.WithTx(context.Background(), func(inner repository.Store) error {
			return inner.Rides().SetStatus(context.Background(), ride.ID, models.RideFilled)
		}); err != nil {
			return err
		}
		// Outer failure discards the inner write too.
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideOpen, after.Status)
}

func TestDuplicateJoinRequestRejected(t *testing.T) {
	store := NewStore()
	ride := seedRide(t, store, models.RideOpen)
	requester := uuid.New()

	_, err := store.Joins().Create(context.Background(), ride.ID, requester)
	require.NoError(t, err)

	_, err = store.Joins().Create(context.Background(), ride.ID, requester)
	assert.ErrorIs(t, err, repository.ErrDuplicateJoinRequest)

	// A different requester on the same ride is fine.
	_, err = store.Joins().Create(context.Background(), ride.ID, uuid.New())
	assert.NoError(t, err)
}

func TestDuplicateEmailRejected(t *testing.T) {
	store := NewStore()

	_, err := store.Users().Create(context.Background(), "ada", "ada@example.com", "hash")
	require.NoError(t, err)

	_, err = store.Users().Create(context.Background(), "other ada", "ada@example.com", "hash")
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ridepool/backend/internal/models"
)

type rideStore struct {
	q querier
}

const rideColumns = "id, owner_id, from_loc, to_loc, time_start, time_end, seats, status, created_at"

func scanRide(row pgx.Row) (*models.Ride, error) {
	var r models.Ride
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.From,
		&r.To,
		&r.TimeStart,
		&r.TimeEnd,
		&r.Seats,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *rideStore) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	query := `
		INSERT INTO rides (owner_id, from_loc, to_loc, time_start, time_end, seats, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + rideColumns

	created, err := scanRide(s.q.QueryRow(ctx, query,
		ride.OwnerID, ride.From, ride.To, ride.TimeStart, ride.TimeEnd, ride.Seats, ride.Status))
	if err != nil {
		return nil, fmt.Errorf("insert ride: %w", err)
	}
	return created, nil
}

func (s *rideStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return s.get(ctx, id, false)
}

func (s *rideStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return s.get(ctx, id, true)
}

func (s *rideStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	ride, err := scanRide(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ride: %w", err)
	}
	return ride, nil
}

func (s *rideStore) ListOpen(ctx context.Context, excludeOwner uuid.UUID, now time.Time) ([]models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE status = $1 AND time_end > $2 AND owner_id <> $3
		ORDER BY time_start ASC`

	return s.list(ctx, query, models.RideOpen, now, excludeOwner)
}

func (s *rideStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	return s.list(ctx, query, ownerID)
}

func (s *rideStore) ListExpired(ctx context.Context, now time.Time) ([]models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE status = $1 AND time_end < $2
		ORDER BY time_end ASC`

	return s.list(ctx, query, models.RideOpen, now)
}

func (s *rideStore) list(ctx context.Context, query string, args ...any) ([]models.Ride, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	rides := make([]models.Ride, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rides: %w", err)
	}
	return rides, nil
}

func (s *rideStore) SetStatus(ctx context.Context, id uuid.UUID, status models.RideStatus) error {
	tag, err := s.q.Exec(ctx, `UPDATE rides SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update ride status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update ride status: ride %s not found", id)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

type joinStore struct {
	q querier
}

const joinColumns = "id, ride_id, requester_id, status, last_read_owner, last_read_requester, created_at"

func scanJoin(row pgx.Row) (*models.JoinRequest, error) {
	var j models.JoinRequest
	err := row.Scan(
		&j.ID,
		&j.RideID,
		&j.RequesterID,
		&j.Status,
		&j.LastReadOwner,
		&j.LastReadRequester,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *joinStore) Create(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error) {
	query := `
		INSERT INTO join_requests (ride_id, requester_id, status)
		VALUES ($1, $2, $3)
		RETURNING ` + joinColumns

	j, err := scanJoin(s.q.QueryRow(ctx, query, rideID, requesterID, models.JoinPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, repository.ErrDuplicateJoinRequest
		}
		return nil, fmt.Errorf("insert join request: %w", err)
	}
	return j, nil
}

func (s *joinStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM join_requests WHERE id = $1`

	j, err := scanJoin(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get join request: %w", err)
	}
	return j, nil
}

func (s *joinStore) GetByRideAndRequester(ctx context.Context, rideID, requesterID uuid.UUID) (*models.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM join_requests WHERE ride_id = $1 AND requester_id = $2`

	j, err := scanJoin(s.q.QueryRow(ctx, query, rideID, requesterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get join request by ride and requester: %w", err)
	}
	return j, nil
}

func (s *joinStore) ListByRide(ctx context.Context, rideID uuid.UUID) ([]models.JoinRequest, error) {
	query := `
		SELECT ` + joinColumns + `
		FROM join_requests
		WHERE ride_id = $1
		ORDER BY created_at DESC`

	return s.list(ctx, query, rideID)
}

func (s *joinStore) ListPendingByRide(ctx context.Context, rideID, exclude uuid.UUID) ([]models.JoinRequest, error) {
	query := `
		SELECT ` + joinColumns + `
		FROM join_requests
		WHERE ride_id = $1 AND status = $2 AND id <> $3
		ORDER BY created_at ASC`

	return s.list(ctx, query, rideID, models.JoinPending, exclude)
}

func (s *joinStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.JoinRequest, error) {
	query := `
		SELECT ` + joinColumns + `
		FROM join_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`

	return s.list(ctx, query, requesterID)
}

func (s *joinStore) list(ctx context.Context, query string, args ...any) ([]models.JoinRequest, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.JoinRequest, 0)
	for rows.Next() {
		j, err := scanJoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		requests = append(requests, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join requests: %w", err)
	}
	return requests, nil
}

func (s *joinStore) CountPendingByRide(ctx context.Context, rideID uuid.UUID) (int, error) {
	var count int
	query := `SELECT count(*) FROM join_requests WHERE ride_id = $1 AND status = $2`
	if err := s.q.QueryRow(ctx, query, rideID, models.JoinPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending join requests: %w", err)
	}
	return count, nil
}

func (s *joinStore) SetStatus(ctx context.Context, id uuid.UUID, status models.JoinStatus) error {
	tag, err := s.q.Exec(ctx, `UPDATE join_requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update join request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update join request status: request %s not found", id)
	}
	return nil
}

func (s *joinStore) SetLastRead(ctx context.Context, id uuid.UUID, owner bool, at time.Time) error {
	column := "last_read_requester"
	if owner {
		column = "last_read_owner"
	}

	query := fmt.Sprintf(`UPDATE join_requests SET %s = $1 WHERE id = $2`, column)
	tag, err := s.q.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update read cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update read cursor: request %s not found", id)
	}
	return nil
}

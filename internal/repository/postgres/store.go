// Package postgres implements the repository interfaces on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridepool/backend/internal/repository"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so
// the same store code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Rides() repository.RideRepository        { return &rideStore{q: s.q} }
func (s *Store) Joins() repository.JoinRequestRepository { return &joinStore{q: s.q} }
func (s *Store) Messages() repository.MessageRepository  { return &messageStore{q: s.q} }
func (s *Store) Users() repository.UserRepository        { return &userStore{q: s.q} }

// WithTx runs fn against a transaction-bound copy of the store.
// Rollback after a successful commit is a no-op, so the deferred call
// only matters on the error paths.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Package memory is an in-process implementation of the repository
// interfaces. The service tests run against it, and it backs
// store-free local runs. WithTx holds the store's write lock for the
// whole callback and restores a snapshot if the callback fails, which
// gives the same all-or-nothing and serialization guarantees the
// Postgres transaction provides.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

type state struct {
	users    map[uuid.UUID]models.User
	rides    map[uuid.UUID]models.Ride
	joins    map[uuid.UUID]models.JoinRequest
	messages map[uuid.UUID]models.ChatMessage

	// order breaks created-at ties so listings stay deterministic
	// when many records are created within one clock tick.
	order map[uuid.UUID]uint64
	seq   uint64
}

func (st *state) clone() *state {
	c := &state{
		users:    make(map[uuid.UUID]models.User, len(st.users)),
		rides:    make(map[uuid.UUID]models.Ride, len(st.rides)),
		joins:    make(map[uuid.UUID]models.JoinRequest, len(st.joins)),
		messages: make(map[uuid.UUID]models.ChatMessage, len(st.messages)),
		order:    make(map[uuid.UUID]uint64, len(st.order)),
		seq:      st.seq,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.rides {
		c.rides[k] = v
	}
	for k, v := range st.joins {
		c.joins[k] = v
	}
	for k, v := range st.messages {
		c.messages[k] = v
	}
	for k, v := range st.order {
		c.order[k] = v
	}
	return c
}

func (st *state) track(id uuid.UUID) {
	st.seq++
	st.order[id] = st.seq
}

// Store implements repository.Store over in-process maps.
type Store struct {
	mu *sync.Mutex
	st *state

	// inTx marks a transaction-bound view: the lock is already held
	// by WithTx, so entity methods must not take it again.
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &state{
			users:    make(map[uuid.UUID]models.User),
			rides:    make(map[uuid.UUID]models.Ride),
			joins:    make(map[uuid.UUID]models.JoinRequest),
			messages: make(map[uuid.UUID]models.ChatMessage),
			order:    make(map[uuid.UUID]uint64),
		},
	}
}

func (s *Store) Rides() repository.RideRepository        { return &rideStore{s} }
func (s *Store) Joins() repository.JoinRequestRepository { return &joinStore{s} }
func (s *Store) Messages() repository.MessageRepository  { return &messageStore{s} }
func (s *Store) Users() repository.UserRepository        { return &userStore{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		// Nested transactions just join the outer one.
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: s.st, inTx: true}); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// lock acquires the store lock unless a surrounding WithTx already
// holds it. Callers defer the returned unlock.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) stamp() time.Time {
	return time.Now()
}

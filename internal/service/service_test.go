package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository/memory"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Room    string
	Type    string
	Payload any
}

func (p *capturePublisher) Publish(_ context.Context, room, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Room: room, Type: eventType, Payload: payload})
}

func (p *capturePublisher) byType(eventType string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedEvent
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (p *capturePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type testEnv struct {
	store *memory.Store
	pub   *capturePublisher
	rides *RideService
	joins *JoinService
	chat  *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	pub := &capturePublisher{}
	logger := zap.NewNop()
	return &testEnv{
		store: store,
		pub:   pub,
		rides: NewRideService(store, pub, logger),
		joins: NewJoinService(store, pub, logger),
		chat:  NewChatService(store, pub, logger),
	}
}

func (e *testEnv) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u, err := e.store.Users().Create(context.Background(), name, name+"@example.com", "hash")
	require.NoError(t, err)
	return u.ID
}

func (e *testEnv) openRide(t *testing.T, ownerID uuid.UUID) *models.Ride {
	t.Helper()
	ride, err := e.rides.Create(context.Background(), ownerID, CreateRideInput{
		From:      "Campus North",
		To:        "Central Station",
		TimeStart: time.Now().Add(time.Hour),
		TimeEnd:   time.Now().Add(2 * time.Hour),
		Seats:     2,
	})
	require.NoError(t, err)
	return ride
}

// expiredRide inserts an open ride whose window already closed,
// bypassing creation-time validation.
func (e *testEnv) expiredRide(t *testing.T, ownerID uuid.UUID) *models.Ride {
	t.Helper()
	ride, err := e.store.Rides().Create(context.Background(), &models.Ride{
		OwnerID:   ownerID,
		From:      "Campus North",
		To:        "Central Station",
		TimeStart: time.Now().Add(-2 * time.Hour),
		TimeEnd:   time.Now().Add(-time.Hour),
		Seats:     1,
		Status:    models.RideOpen,
	})
	require.NoError(t, err)
	return ride
}

func (e *testEnv) pendingRequest(t *testing.T, rideID, requesterID uuid.UUID) *models.JoinRequest {
	t.Helper()
	req, created, err := e.joins.RequestJoin(context.Background(), rideID, requesterID)
	require.NoError(t, err)
	require.True(t, created)
	return req
}

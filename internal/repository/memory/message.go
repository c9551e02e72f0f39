package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
)

type messageStore struct {
	s *Store
}

func (m *messageStore) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	defer m.s.lock()()

	created := *msg
	created.ID = uuid.New()
	created.IsEdited = false
	created.CreatedAt = m.s.stamp()

	m.s.st.messages[created.ID] = created
	m.s.st.track(created.ID)
	return &created, nil
}

func (m *messageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	defer m.s.lock()()

	msg, ok := m.s.st.messages[id]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (m *messageStore) ListByJoinRequest(ctx context.Context, joinID uuid.UUID) ([]models.ChatMessage, error) {
	defer m.s.lock()()

	messages := make([]models.ChatMessage, 0)
	for _, msg := range m.s.st.messages {
		if msg.JoinRequestID == joinID {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(a, b int) bool {
		if !messages[a].CreatedAt.Equal(messages[b].CreatedAt) {
			return messages[a].CreatedAt.Before(messages[b].CreatedAt)
		}
		return m.s.st.order[messages[a].ID] < m.s.st.order[messages[b].ID]
	})
	return messages, nil
}

func (m *messageStore) UpdateText(ctx context.Context, id uuid.UUID, text string) (*models.ChatMessage, error) {
	defer m.s.lock()()

	msg, ok := m.s.st.messages[id]
	if !ok {
		return nil, nil
	}
	msg.Message = text
	msg.IsEdited = true
	m.s.st.messages[id] = msg
	return &msg, nil
}

func (m *messageStore) Delete(ctx context.Context, id uuid.UUID) error {
	defer m.s.lock()()

	if _, ok := m.s.st.messages[id]; !ok {
		return errNotFound("chat message", id)
	}
	delete(m.s.st.messages, id)
	return nil
}

func (m *messageStore) CountSince(ctx context.Context, joinID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int, error) {
	defer m.s.lock()()

	count := 0
	for _, msg := range m.s.st.messages {
		if msg.JoinRequestID == joinID && msg.CreatedAt.After(since) && msg.SenderID != excludeSender {
			count++
		}
	}
	return count, nil
}

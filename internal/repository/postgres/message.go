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

type messageStore struct {
	q querier
}

const messageColumns = "id, join_request_id, sender_id, message, is_system, is_edited, created_at"

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := row.Scan(
		&m.ID,
		&m.JoinRequestID,
		&m.SenderID,
		&m.Message,
		&m.IsSystem,
		&m.IsEdited,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *messageStore) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (join_request_id, sender_id, message, is_system)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	created, err := scanMessage(s.q.QueryRow(ctx, query,
		msg.JoinRequestID, msg.SenderID, msg.Message, msg.IsSystem))
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return created, nil
}

func (s *messageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE id = $1`

	m, err := scanMessage(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return m, nil
}

func (s *messageStore) ListByJoinRequest(ctx context.Context, joinID uuid.UUID) ([]models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE join_request_id = $1
		ORDER BY created_at ASC`

	rows, err := s.q.Query(ctx, query, joinID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}

func (s *messageStore) UpdateText(ctx context.Context, id uuid.UUID, text string) (*models.ChatMessage, error) {
	query := `
		UPDATE chat_messages
		SET message = $1, is_edited = true
		WHERE id = $2
		RETURNING ` + messageColumns

	m, err := scanMessage(s.q.QueryRow(ctx, query, text, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update chat message: %w", err)
	}
	return m, nil
}

func (s *messageStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete chat message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete chat message: message %s not found", id)
	}
	return nil
}

func (s *messageStore) CountSince(ctx context.Context, joinID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT count(*)
		FROM chat_messages
		WHERE join_request_id = $1 AND created_at > $2 AND sender_id <> $3`
	if err := s.q.QueryRow(ctx, query, joinID, since, excludeSender).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/apperr"
	"ridepool/backend/internal/events"
	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

const maxMessageLen = 1000

// ChatService handles the per-join-request conversation between a
// ride owner and a requester. Every operation authorizes the caller
// as one of those two parties first.
type ChatService struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

func NewChatService(store repository.Store, pub events.Publisher, logger *zap.Logger) *ChatService {
	return &ChatService{store: store, events: pub, logger: logger}
}

// thread loads a join request with its ride and checks the caller is
// the ride owner or the requester.
func (s *ChatService) thread(ctx context.Context, joinID, callerID uuid.UUID) (*models.JoinRequest, *models.Ride, bool, error) {
	req, err := s.store.Joins().GetByID(ctx, joinID)
	if err != nil {
		return nil, nil, false, apperr.Internal("get join request", err)
	}
	if req == nil {
		return nil, nil, false, apperr.NotFound("chat not found")
	}

	ride, err := s.store.Rides().GetByID(ctx, req.RideID)
	if err != nil {
		return nil, nil, false, apperr.Internal("get ride", err)
	}
	if ride == nil {
		return nil, nil, false, apperr.NotFound("ride not found")
	}

	isOwner := ride.OwnerID == callerID
	if !isOwner && req.RequesterID != callerID {
		return nil, nil, false, apperr.Forbidden("you do not have access to this chat")
	}
	return req, ride, isOwner, nil
}

// Thread is a chat listing from one caller's point of view.
type Thread struct {
	Messages    []models.ChatMessage `json:"messages"`
	JoinRequest *models.JoinRequest  `json:"join_request"`
	IsOwner     bool                 `json:"is_owner"`
	CanSend     bool                 `json:"can_send_message"`
}

// ListMessages returns a thread oldest-first and, as a side effect,
// advances the caller's read cursor and announces the read to the
// chat room.
func (s *ChatService) ListMessages(ctx context.Context, joinID, callerID uuid.UUID) (*Thread, error) {
	req, _, isOwner, err := s.thread(ctx, joinID, callerID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.Messages().ListByJoinRequest(ctx, joinID)
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}

	now := time.Now()
	if err := s.markRead(ctx, req, isOwner, callerID, now); err != nil {
		return nil, err
	}

	return &Thread{
		Messages:    messages,
		JoinRequest: req,
		IsOwner:     isOwner,
		CanSend:     req.Status != models.JoinRejected,
	}, nil
}

// MarkRead advances the caller's read cursor without fetching the
// thread.
func (s *ChatService) MarkRead(ctx context.Context, joinID, callerID uuid.UUID) error {
	req, _, isOwner, err := s.thread(ctx, joinID, callerID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, req, isOwner, callerID, time.Now())
}

func (s *ChatService) markRead(ctx context.Context, req *models.JoinRequest, isOwner bool, callerID uuid.UUID, at time.Time) error {
	if err := s.store.Joins().SetLastRead(ctx, req.ID, isOwner, at); err != nil {
		return apperr.Internal("update read cursor", err)
	}
	if isOwner {
		req.LastReadOwner = at
	} else {
		req.LastReadRequester = at
	}

	s.events.Publish(ctx, events.ChatRoom(req.ID), events.TypeMessagesRead, map[string]any{
		"join_request_id": req.ID,
		"user_id":         callerID,
		"last_read":       at,
	})
	return nil
}

func validateMessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("message cannot be empty")
	}
	if len([]rune(text)) > maxMessageLen {
		return "", apperr.Validation("message cannot exceed 1000 characters")
	}
	return text, nil
}

// Send appends a message to an open thread. A rejected request's chat
// is closed.
func (s *ChatService) Send(ctx context.Context, joinID, senderID uuid.UUID, text string) (*models.ChatMessage, error) {
	text, err := validateMessageText(text)
	if err != nil {
		return nil, err
	}

	req, _, _, err := s.thread(ctx, joinID, senderID)
	if err != nil {
		return nil, err
	}
	if req.Status == models.JoinRejected {
		return nil, apperr.Conflict("this chat has been closed")
	}

	msg, err := s.store.Messages().Create(ctx, &models.ChatMessage{
		JoinRequestID: joinID,
		SenderID:      senderID,
		Message:       text,
	})
	if err != nil {
		return nil, apperr.Internal("create message", err)
	}

	s.events.Publish(ctx, events.ChatRoom(joinID), events.TypeNewMessage, msg)

	return msg, nil
}

// Edit replaces the body of the sender's own message and marks it
// edited.
func (s *ChatService) Edit(ctx context.Context, joinID, messageID, senderID uuid.UUID, text string) (*models.ChatMessage, error) {
	text, err := validateMessageText(text)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return nil, apperr.Internal("get message", err)
	}
	if msg == nil {
		return nil, apperr.NotFound("message not found")
	}
	if msg.SenderID != senderID {
		return nil, apperr.Forbidden("you can only edit your own messages")
	}
	if msg.JoinRequestID != joinID {
		return nil, apperr.Validation("message does not belong to this chat")
	}

	updated, err := s.store.Messages().UpdateText(ctx, messageID, text)
	if err != nil {
		return nil, apperr.Internal("update message", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("message not found")
	}

	s.events.Publish(ctx, events.ChatRoom(joinID), events.TypeMessageEdited, updated)

	return updated, nil
}

// Delete removes the sender's own message. The room is told the id,
// not the content.
func (s *ChatService) Delete(ctx context.Context, joinID, messageID, senderID uuid.UUID) error {
	msg, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return apperr.Internal("get message", err)
	}
	if msg == nil {
		return apperr.NotFound("message not found")
	}
	if msg.SenderID != senderID {
		return apperr.Forbidden("you can only delete your own messages")
	}
	if msg.JoinRequestID != joinID {
		return apperr.Validation("message does not belong to this chat")
	}

	if err := s.store.Messages().Delete(ctx, messageID); err != nil {
		return apperr.Internal("delete message", err)
	}

	s.events.Publish(ctx, events.ChatRoom(joinID), events.TypeMessageDeleted, map[string]any{
		"message_id": messageID,
	})

	return nil
}

// UnreadCount derives how many messages the caller has not read yet:
// messages newer than their cursor and sent by the other party (or
// the engine).
func (s *ChatService) UnreadCount(ctx context.Context, joinID, callerID uuid.UUID) (int, error) {
	req, _, isOwner, err := s.thread(ctx, joinID, callerID)
	if err != nil {
		return 0, err
	}

	since := req.LastReadRequester
	if isOwner {
		since = req.LastReadOwner
	}

	count, err := s.store.Messages().CountSince(ctx, joinID, since, callerID)
	if err != nil {
		return 0, apperr.Internal("count unread messages", err)
	}
	return count, nil
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/middleware"
	"ridepool/backend/internal/service"
)

type ChatHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

func NewChatHandler(chat *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func joinParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("joinId"))
	if err != nil {
		badRequest(c, "invalid join request ID")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /join/:joinId/messages. Fetching a thread marks it
// read for the caller.
func (h *ChatHandler) List(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}

	thread, err := h.chat.ListMessages(c.Request.Context(), joinID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", thread)
}

// MarkRead handles POST /join/:joinId/read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}

	if err := h.chat.MarkRead(c.Request.Context(), joinID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", nil)
}

// Send handles POST /join/:joinId/messages.
func (h *ChatHandler) Send(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), joinID, middleware.GetUserID(c), req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "message sent", gin.H{"chat_message": msg})
}

// Edit handles PUT /join/:joinId/messages/:messageId.
func (h *ChatHandler) Edit(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		badRequest(c, "invalid message ID")
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.chat.Edit(c.Request.Context(), joinID, messageID, middleware.GetUserID(c), req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "message updated", gin.H{"chat_message": msg})
}

// Delete handles DELETE /join/:joinId/messages/:messageId.
func (h *ChatHandler) Delete(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		badRequest(c, "invalid message ID")
		return
	}

	if err := h.chat.Delete(c.Request.Context(), joinID, messageID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "message deleted", nil)
}

// Unread handles GET /join/:joinId/unread.
func (h *ChatHandler) Unread(c *gin.Context) {
	joinID, ok := joinParam(c)
	if !ok {
		return
	}

	count, err := h.chat.UnreadCount(c.Request.Context(), joinID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"unread": count})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/middleware"
	"ridepool/backend/internal/service"
)

type JoinHandler struct {
	joins  *service.JoinService
	logger *zap.Logger
}

func NewJoinHandler(joins *service.JoinService, logger *zap.Logger) *JoinHandler {
	return &JoinHandler{joins: joins, logger: logger}
}

// Request handles POST /rides/:id/join. A repeat request returns the
// existing record with 200 instead of creating a duplicate.
func (h *JoinHandler) Request(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid ride ID")
		return
	}

	req, created, err := h.joins.RequestJoin(c.Request.Context(), rideID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if !created {
		respond(c, http.StatusOK, "you have already requested to join this ride", gin.H{"join_request": req})
		return
	}
	respond(c, http.StatusCreated, "join request sent", gin.H{"join_request": req})
}

// Accept handles POST /join/:joinId/accept.
func (h *JoinHandler) Accept(c *gin.Context) {
	joinID, err := uuid.Parse(c.Param("joinId"))
	if err != nil {
		badRequest(c, "invalid join request ID")
		return
	}

	result, err := h.joins.Accept(c.Request.Context(), joinID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "request accepted", result)
}

// ListMine handles GET /join/my.
func (h *JoinHandler) ListMine(c *gin.Context) {
	requests, err := h.joins.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"requests": requests})
}

// ListForRide handles GET /rides/:id/requests (owner only).
func (h *JoinHandler) ListForRide(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid ride ID")
		return
	}

	requests, err := h.joins.ListForRide(c.Request.Context(), rideID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"requests": requests})
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridepool/backend/internal/middleware"
	"ridepool/backend/internal/service"
)

type RideHandler struct {
	rides  *service.RideService
	logger *zap.Logger
}

func NewRideHandler(rides *service.RideService, logger *zap.Logger) *RideHandler {
	return &RideHandler{rides: rides, logger: logger}
}

type createRideRequest struct {
	From      string    `json:"from" binding:"required"`
	To        string    `json:"to" binding:"required"`
	TimeStart time.Time `json:"time_start" binding:"required"`
	TimeEnd   time.Time `json:"time_end" binding:"required"`
	Seats     int       `json:"seats"`
}

// Create handles POST /rides.
func (h *RideHandler) Create(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ride, err := h.rides.Create(c.Request.Context(), middleware.GetUserID(c), service.CreateRideInput{
		From:      req.From,
		To:        req.To,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		Seats:     req.Seats,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "ride created", gin.H{"ride": ride})
}

// List handles GET /rides — joinable rides for the caller.
func (h *RideHandler) List(c *gin.Context) {
	rides, err := h.rides.ListOpen(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"rides": rides})
}

// ListMine handles GET /rides/my — the caller's own rides with
// pending request counts.
func (h *RideHandler) ListMine(c *gin.Context) {
	rides, err := h.rides.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"rides": rides})
}

// Get handles GET /rides/:id.
func (h *RideHandler) Get(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid ride ID")
		return
	}

	detail, err := h.rides.Get(c.Request.Context(), rideID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", detail)
}

// Cancel handles DELETE /rides/:id.
func (h *RideHandler) Cancel(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid ride ID")
		return
	}

	ride, err := h.rides.Cancel(c.Request.Context(), rideID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "ride cancelled", gin.H{"ride": ride})
}

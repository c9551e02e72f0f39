package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ridepool/backend/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a separate origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated HTTP requests to websocket
// connections and hands them to the hub.
type Handler struct {
	hub       *Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewHandler(hub *Hub, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, jwtSecret: jwtSecret, logger: logger}
}

// ServeWS authenticates via a token query parameter or Authorization
// header, upgrades the connection, and starts the client pumps.
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
		return
	}

	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

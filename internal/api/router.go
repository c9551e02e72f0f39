package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/backend/internal/middleware"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth  *AuthHandler
	Rides *RideHandler
	Joins *JoinHandler
	Chat  *ChatHandler
}

// RegisterRoutes attaches the full REST surface. /health and /auth
// are public; everything else sits behind the JWT middleware.
func RegisterRoutes(r *gin.Engine, h Handlers, jwtSecret string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/signup", h.Auth.Signup)
	r.POST("/auth/login", h.Auth.Login)

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(jwtSecret))

	authed.POST("/rides", h.Rides.Create)
	authed.GET("/rides", h.Rides.List)
	authed.GET("/rides/my", h.Rides.ListMine)
	authed.GET("/rides/:id", h.Rides.Get)
	authed.DELETE("/rides/:id", h.Rides.Cancel)

	authed.POST("/rides/:id/join", h.Joins.Request)
	authed.GET("/rides/:id/requests", h.Joins.ListForRide)
	authed.GET("/join/my", h.Joins.ListMine)
	authed.POST("/join/:joinId/accept", h.Joins.Accept)

	authed.GET("/join/:joinId/messages", h.Chat.List)
	authed.POST("/join/:joinId/messages", h.Chat.Send)
	authed.POST("/join/:joinId/read", h.Chat.MarkRead)
	authed.GET("/join/:joinId/unread", h.Chat.Unread)
	authed.PUT("/join/:joinId/messages/:messageId", h.Chat.Edit)
	authed.DELETE("/join/:joinId/messages/:messageId", h.Chat.Delete)
}

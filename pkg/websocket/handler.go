package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scorta/pkg/middleware"
)

// Topics served by the hub. Clients subscribe after connecting; services
// publish row changes here so watchers can re-fetch or apply the delta.
const (
	TopicSOSAlerts       = "sos_alerts"
	TopicSharedLocations = "shared_locations"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler { return &Handler{hub: hub} }

// HandleWebSocket upgrades an authenticated request.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	HandleWebSocket(h.hub, c.Writer, c.Request, userID)
}

// Stats reports hub occupancy, used by the system routes.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections":  h.hub.ConnectionCount(),
		"max_connections":    h.hub.config.MaxConnections,
		"heartbeat_interval": h.hub.config.HeartbeatInterval.String(),
		"sos_subscribers":    h.hub.TopicSubscriberCount(TopicSOSAlerts),
		"location_watchers":  h.hub.TopicSubscriberCount(TopicSharedLocations),
		"timestamp":          time.Now().Unix(),
	})
}

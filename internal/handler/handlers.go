package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scorta/pkg/middleware"
	ws "scorta/pkg/websocket"
)

// Handlers bundles every HTTP handler plus the websocket endpoint for route
// registration.
type Handlers struct {
	SOS      *SOSHandler
	Contacts *ContactHandler
	Location *LocationHandler
	Audio    *AudioHandler
	Chat     *ChatHandler
	Profile  *ProfileHandler
	System   *SystemHandler
	WS       *ws.Handler
}

// Register mounts all routes under the API prefix. The SOS trigger uses
// optional auth so unauthenticated demo calls still reach the service; every
// other user route requires a token.
func Register(r *gin.Engine, prefix, jwtSecret string, h *Handlers) {
	r.GET("/health", h.System.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(prefix)

	sos := api.Group("/sos")
	{
		sos.POST("/trigger", middleware.OptionalAuth(jwtSecret), h.SOS.Trigger)

		auth := sos.Group("", middleware.AuthRequired(jwtSecret))
		auth.POST("/deactivate", h.SOS.Deactivate)
		auth.POST("/cancel", h.SOS.Cancel)
		auth.GET("/active", h.SOS.Active)
		auth.GET("/received", h.SOS.Received)
		auth.POST("/notifications/:id/read", h.SOS.MarkNotificationRead)

		contacts := auth.Group("/contacts")
		contacts.GET("", h.Contacts.List)
		contacts.POST("", h.Contacts.Add)
		contacts.PATCH("/:id", h.Contacts.Toggle)
		contacts.DELETE("/:id", h.Contacts.Remove)
	}

	location := api.Group("/location", middleware.AuthRequired(jwtSecret))
	{
		location.POST("/update", h.Location.Update)
		location.POST("/sharing", h.Location.ToggleSharing)
		location.GET("/shared", h.Location.Shared)
		location.GET("/permissions", h.Location.MyPermissions)
		location.POST("/permissions", h.Location.GrantPermission)
		location.DELETE("/permissions/:viewerId", h.Location.RevokePermission)
	}

	audio := api.Group("/audio", middleware.AuthRequired(jwtSecret))
	{
		audio.POST("/start", h.Audio.StartSession)
		audio.POST("/chunks", h.Audio.UploadChunk)
		audio.POST("/stop", h.Audio.StopSession)
		audio.GET("/alerts/:alertId", h.Audio.ListForAlert)
		audio.GET("/recordings/:id/url", h.Audio.SignedURL)
		audio.DELETE("/recordings/:id", h.Audio.Delete)
	}

	chat := api.Group("/chat", middleware.AuthRequired(jwtSecret))
	{
		chat.POST("/conversations", h.Chat.OpenConversation)
		chat.GET("/conversations", h.Chat.Conversations)
		chat.GET("/conversations/:id/messages", h.Chat.Messages)
		chat.POST("/conversations/:id/messages", h.Chat.SendMessage)
		chat.POST("/conversations/:id/read", h.Chat.MarkRead)
	}

	profile := api.Group("/profile", middleware.AuthRequired(jwtSecret))
	{
		profile.GET("/me", h.Profile.Me)
		profile.PUT("/me", h.Profile.Upsert)
	}

	system := api.Group("/system", middleware.AuthRequired(jwtSecret))
	{
		system.GET("/stats", h.System.SystemStats)
		system.GET("/ws", h.WS.Stats)
	}

	r.GET("/ws", middleware.AuthRequired(jwtSecret), h.WS.HandleWebSocket)
}

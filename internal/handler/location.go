package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
)

type LocationHandler struct {
	location *service.LocationService
}

func NewLocationHandler(location *service.LocationService) *LocationHandler {
	return &LocationHandler{location: location}
}

// Pointer coordinates: presence is required but zero values are legal fixes
// ((0,0) is the web client's default position).
type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Sharing   *bool    `json:"is_sharing_enabled"`
}

// Update receives a device fix. Omitting is_sharing_enabled keeps sharing on,
// matching the clients that report fixes only while sharing.
func (h *LocationHandler) Update(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	sharing := true
	if req.Sharing != nil {
		sharing = *req.Sharing
	}
	err := h.location.UpdateMyLocation(c.Request.Context(), middleware.UserID(c), *req.Latitude, *req.Longitude, sharing)
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "location updated", nil)
}

type toggleSharingRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *LocationHandler) ToggleSharing(c *gin.Context) {
	var req toggleSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.location.ToggleSharing(c.Request.Context(), middleware.UserID(c), req.Enabled); err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "sharing updated", nil)
}

type grantPermissionRequest struct {
	ViewerID       string     `json:"viewer_id" binding:"required"`
	PermissionType string     `json:"permission_type"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

func (h *LocationHandler) GrantPermission(c *gin.Context) {
	var req grantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	perm, err := h.location.GrantPermission(c.Request.Context(), middleware.UserID(c), req.ViewerID, req.PermissionType, req.ExpiresAt)
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Created(c, "permission granted", perm)
}

func (h *LocationHandler) RevokePermission(c *gin.Context) {
	err := h.location.RevokePermission(c.Request.Context(), middleware.UserID(c), c.Param("viewerId"))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "permission revoked", nil)
}

func (h *LocationHandler) MyPermissions(c *gin.Context) {
	perms, err := h.location.MyPermissions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", perms)
}

// Shared returns the live positions the caller is allowed to watch.
func (h *LocationHandler) Shared(c *gin.Context) {
	locations, err := h.location.SharedLocations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", locations)
}

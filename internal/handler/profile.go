package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.NotFound(c, "profile not found")
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", p)
}

type upsertProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	City     string `json:"city"`
}

func (h *ProfileHandler) Upsert(c *gin.Context) {
	var req upsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}
	p := &models.Profile{
		ID:               middleware.UserID(c),
		FullName:         req.FullName,
		Phone:            req.Phone,
		Role:             req.Role,
		City:             req.City,
		ProfileCompleted: req.FullName != "" && req.Phone != "",
	}
	if err := h.profiles.Upsert(c.Request.Context(), p); err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "profile saved", p)
}

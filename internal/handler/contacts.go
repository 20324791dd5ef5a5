package handler

import (
	"github.com/gin-gonic/gin"

	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
)

type ContactHandler struct {
	contacts *service.ContactService
}

func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

type addContactRequest struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	ContactUserID *string `json:"contact_user_id"`
	Priority      int     `json:"priority"`
}

func (h *ContactHandler) Add(c *gin.Context) {
	var req addContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	contact, err := h.contacts.Add(c.Request.Context(), middleware.UserID(c), req.Name, req.Phone, req.ContactUserID, req.Priority)
	if err != nil {
		if err == service.ErrNameRequired {
			response.BadRequest(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Created(c, "contact added", contact)
}

func (h *ContactHandler) Remove(c *gin.Context) {
	if err := h.contacts.Remove(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.NotFound(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "contact removed", nil)
}

type toggleContactRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *ContactHandler) Toggle(c *gin.Context) {
	var req toggleContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.contacts.Toggle(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.IsActive); err != nil {
		response.NotFound(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "contact updated", nil)
}

func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.contacts.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", contacts)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
)

type SOSHandler struct {
	sos *service.SOSService
}

func NewSOSHandler(sos *service.SOSService) *SOSHandler {
	return &SOSHandler{sos: sos}
}

// Trigger fires an SOS. Works without auth: unauthenticated callers get the
// demo-mode response instead of an error, mirroring the mobile UX.
func (h *SOSHandler) Trigger(c *gin.Context) {
	userID := middleware.UserID(c)
	lang := c.GetHeader("Accept-Language")

	result := h.sos.Trigger(c.Request.Context(), userID, lang)
	if !result.Success {
		response.Fail(c, result.Message, nil)
		return
	}
	response.Success(c, result.Message, result)
}

func (h *SOSHandler) Deactivate(c *gin.Context) {
	if err := h.sos.Deactivate(c.Request.Context(), middleware.UserID(c)); err != nil {
		if err == service.ErrNoActiveAlert {
			response.NotFound(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "SOS resolved", nil)
}

func (h *SOSHandler) Cancel(c *gin.Context) {
	if err := h.sos.Cancel(c.Request.Context(), middleware.UserID(c)); err != nil {
		if err == service.ErrNoActiveAlert {
			response.NotFound(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "SOS cancelled", nil)
}

func (h *SOSHandler) Active(c *gin.Context) {
	alert, err := h.sos.ActiveAlert(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if err == service.ErrNoActiveAlert {
			response.Success(c, "ok", nil)
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", alert)
}

// Received lists active alerts addressed to the caller as emergency contact.
func (h *SOSHandler) Received(c *gin.Context) {
	alerts, err := h.sos.ReceivedAlerts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", alerts)
}

func (h *SOSHandler) MarkNotificationRead(c *gin.Context) {
	err := h.sos.MarkNotificationRead(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.NotFound(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", nil)
}

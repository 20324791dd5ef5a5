package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
)

type AudioHandler struct {
	audio     *service.AudioService
	signedTTL time.Duration
}

func NewAudioHandler(audio *service.AudioService, signedTTL time.Duration) *AudioHandler {
	if signedTTL <= 0 {
		signedTTL = time.Hour
	}
	return &AudioHandler{audio: audio, signedTTL: signedTTL}
}

type startSessionRequest struct {
	AlertID string `json:"alert_id" binding:"required"`
}

// StartSession opens (or reopens) capture for an active alert. Triggering an
// SOS starts one implicitly; this exists for clients resuming after a crash.
func (h *AudioHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "alert_id is required")
		return
	}
	if err := h.audio.BeginSession(c.Request.Context(), middleware.UserID(c), req.AlertID); err != nil {
		if err == service.ErrAlertNotActive {
			response.NotFound(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "recording started", nil)
}

// UploadChunk ingests one multipart audio segment for an active alert.
// Form fields: chunk (file), alert_id, duration_seconds (optional).
func (h *AudioHandler) UploadChunk(c *gin.Context) {
	alertID := c.PostForm("alert_id")
	if alertID == "" {
		response.BadRequest(c, "alert_id is required")
		return
	}
	file, err := c.FormFile("chunk")
	if err != nil {
		response.BadRequest(c, "chunk file is required")
		return
	}
	duration := cast.ToInt(c.PostForm("duration_seconds"))

	src, err := file.Open()
	if err != nil {
		response.ServerError(c, "unable to read upload")
		return
	}
	defer src.Close()

	rec, err := h.audio.IngestChunk(
		c.Request.Context(),
		middleware.UserID(c),
		alertID,
		src,
		file.Size,
		file.Header.Get("Content-Type"),
		duration,
	)
	if err != nil {
		if err == service.ErrAlertNotActive {
			response.NotFound(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Created(c, "chunk stored", rec)
}

func (h *AudioHandler) StopSession(c *gin.Context) {
	d, err := h.audio.StopSession(middleware.UserID(c))
	if err != nil {
		response.NotFound(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "recording stopped", gin.H{"duration_seconds": int(d.Seconds())})
}

func (h *AudioHandler) ListForAlert(c *gin.Context) {
	recs, err := h.audio.RecordingsForAlert(c.Request.Context(), middleware.UserID(c), c.Param("alertId"))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", recs)
}

// SignedURL returns a time-limited playback link for one recording the
// caller owns.
func (h *AudioHandler) SignedURL(c *gin.Context) {
	rec, err := h.audio.Recording(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if err == service.ErrRecordingNotFound {
			response.NotFound(c, errors.GetMessage(err))
			return
		}
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	url, err := h.audio.SignedAudioURL(c.Request.Context(), rec.StoragePath, h.signedTTL)
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", gin.H{"url": url, "expires_in": int(h.signedTTL.Seconds())})
}

func (h *AudioHandler) Delete(c *gin.Context) {
	if err := h.audio.DeleteRecording(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.NotFound(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "recording deleted", nil)
}

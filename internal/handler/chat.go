package handler

import (
	"github.com/gin-gonic/gin"

	"scorta/internal/models"
	"scorta/internal/service"
	"scorta/pkg/errors"
	"scorta/pkg/middleware"
	"scorta/pkg/response"
	ws "scorta/pkg/websocket"
)

type ChatHandler struct {
	chat *service.ChatService
	hub  *ws.Hub
}

func NewChatHandler(chat *service.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{chat: chat, hub: hub}
}

type openConversationRequest struct {
	PeerID    string  `json:"peer_id" binding:"required"`
	BookingID *string `json:"booking_id"`
}

func (h *ChatHandler) OpenConversation(c *gin.Context) {
	var req openConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	conv, err := h.chat.GetOrCreateConversation(c.Request.Context(), middleware.UserID(c), req.PeerID, req.BookingID)
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", conv)
}

func (h *ChatHandler) Conversations(c *gin.Context) {
	convs, err := h.chat.Conversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", convs)
}

func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.chat.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", msgs)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}
	msg, err := h.chat.SendMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Content, req.Type)
	if err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}

	// live delivery to whoever else is in the conversation
	conv, err := h.chat.GetConversation(c.Request.Context(), c.Param("id"))
	if err == nil {
		peer := conv.ClientID
		if peer == middleware.UserID(c) {
			peer = conv.BodyguardID
		}
		h.hub.SendToUser(peer, "chat_message", msg)
	}
	response.Created(c, "message sent", msg)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	if err := h.chat.MarkMessagesRead(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		response.ServerError(c, errors.GetMessage(err))
		return
	}
	response.Success(c, "ok", nil)
}

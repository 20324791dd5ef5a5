package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/errors"
)

// ChatService manages client/bodyguard conversations. The audio fan-out
// writes through it so emergency audio shows up as ordinary chat messages.
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// GetOrCreateConversation finds the pair's conversation in either direction
// or creates one with the given roles.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, clientID, bodyguardID string, bookingID *string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("(client_id = ? AND bodyguard_id = ?) OR (client_id = ? AND bodyguard_id = ?)",
			clientID, bodyguardID, bodyguardID, clientID).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	conv = models.Conversation{ClientID: clientID, BodyguardID: bodyguardID, BookingID: bookingID}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return &conv, nil
}

func (s *ChatService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ChatService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("client_id = ? OR bodyguard_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

func (s *ChatService) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// SendMessage inserts the message and bumps the conversation preview.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID, content, msgType string) (*models.Message, error) {
	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]any{"last_message": content, "last_message_at": now}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send message")
	}
	return &msg, nil
}

// MarkMessagesRead marks every message from the other party as read.
func (s *ChatService) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	return s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true).Error
}

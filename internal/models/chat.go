package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
)

// Conversation pairs a client with a bodyguard, optionally tied to a booking.
// The audio fan-out reuses these so emergency audio lands in the existing
// chat thread of each contact.
type Conversation struct {
	ID            string  `gorm:"primaryKey;size:36"`
	BookingID     *string `gorm:"size:36"`
	ClientID      string  `gorm:"size:36;index"`
	BodyguardID   string  `gorm:"size:36;index"`
	LastMessage   *string `gorm:"size:1024"`
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Message struct {
	ID             string `gorm:"primaryKey;size:36"`
	ConversationID string `gorm:"size:36;index"`
	SenderID       string `gorm:"size:36"`
	Content        string `gorm:"size:2048"`
	Type           string `gorm:"size:16"`
	Read           bool   `gorm:"column:is_read"` // "read" is reserved in mysql
	CreatedAt      time.Time
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}
	return nil
}

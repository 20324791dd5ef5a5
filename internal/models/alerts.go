package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scorta/pkg/util"
)

const (
	SOSStatusActive    = "active"
	SOSStatusResolved  = "resolved"
	SOSStatusCancelled = "cancelled"
)

// SOSAlert is one emergency record. Exactly one active alert may exist per
// user; the service layer enforces it with a transactional check before insert.
type SOSAlert struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"size:36;index:idx_sos_user_status"`
	Latitude    float64
	Longitude   float64
	Status      string `gorm:"size:16;index:idx_sos_user_status"`
	TriggeredAt time.Time
	ResolvedAt  *time.Time
	Notes       string `gorm:"size:1024"`
}

func (a *SOSAlert) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = time.Now().UTC()
	}
	return nil
}

func (a *SOSAlert) AfterCreate(*gorm.DB) error {
	util.Sig().Emit(SigSOSAlertCreated, a)
	return nil
}

func (a *SOSAlert) AfterUpdate(*gorm.DB) error {
	util.Sig().Emit(SigSOSAlertUpdated, a)
	return nil
}

// SOSNotification is one (alert, recipient) delivery record. Rows are created
// when the alert fires, one per active emergency contact with a linked user.
type SOSNotification struct {
	ID              string `gorm:"primaryKey;size:36"`
	SOSAlertID      string `gorm:"size:36;index"`
	RecipientUserID string `gorm:"size:36;index"`
	SentAt          time.Time
	ReadAt          *time.Time
	AcknowledgedAt  *time.Time
}

func (n *SOSNotification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	return nil
}

// ReceivedAlert is the read-model returned to recipients: the alert joined
// with the sender's display name.
type ReceivedAlert struct {
	SOSAlert
	UserName string `json:"user_name"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmergencyContact is a person designated to receive the owner's SOS
// notifications. ContactUserID is set when the contact is also a platform
// user; only linked contacts receive in-app fan-out, the others are reachable
// by SMS only.
type EmergencyContact struct {
	ID            string  `gorm:"primaryKey;size:36"`
	UserID        string  `gorm:"size:36;index"`
	ContactUserID *string `gorm:"size:36"`
	ContactName   string  `gorm:"size:255"`
	ContactPhone  string  `gorm:"size:32"`
	Priority      int
	IsActive      bool
	CreatedAt     time.Time
}

func (e *EmergencyContact) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scorta/pkg/util"
)

const (
	PermissionExplicit  = "explicit"
	PermissionBooking   = "booking"
	PermissionEmergency = "emergency"
)

// UserLocation is the single current-position row per user, overwritten on
// every update. No history is kept.
type UserLocation struct {
	UserID           string `gorm:"primaryKey;size:36"`
	Latitude         float64
	Longitude        float64
	IsSharingEnabled bool
	LastUpdated      time.Time
}

func (l *UserLocation) AfterSave(*gorm.DB) error {
	util.Sig().Emit(SigLocationUpdated, l)
	return nil
}

// SharingPermission lets a viewer read the owner's live location. Revocation
// is a soft delete (IsActive=false) so the history row survives. Expired
// permissions are excluded at read time and swept inactive by a cron job.
type SharingPermission struct {
	ID             string `gorm:"primaryKey;size:36"`
	OwnerID        string `gorm:"size:36;index"`
	ViewerID       string `gorm:"size:36;index"`
	PermissionType string `gorm:"size:16"`
	IsActive       bool
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}

func (p *SharingPermission) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SharedLocation is the read-model for a viewer: an owner's position joined
// with profile data.
type SharedLocation struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	IsSharingEnabled bool      `json:"is_sharing_enabled"`
	LastUpdated      time.Time `json:"last_updated"`
}

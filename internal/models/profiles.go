package models

import "time"

const (
	RoleClient    = "client"
	RoleBodyguard = "bodyguard"
)

// Profile mirrors the identity provider's user record with the display fields
// the SOS flows join on. The ID is the auth user id.
type Profile struct {
	ID               string `gorm:"primaryKey;size:36"`
	FullName         string `gorm:"size:255"`
	Phone            string `gorm:"size:32"`
	Role             string `gorm:"size:16"`
	City             string `gorm:"size:128"`
	ProfileCompleted bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

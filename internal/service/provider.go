package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"scorta/internal/models"
)

// Position is one coordinate fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ErrNoFix means no position is known for the user yet.
var ErrNoFix = errors.New("no position fix available")

// LocationProvider abstracts "current position of user X". Devices report
// fixes through the location API; server-side consumers (the SOS push loop)
// read the latest one back through this interface. Injectable for tests.
type LocationProvider interface {
	CurrentPosition(ctx context.Context, userID string) (Position, error)
}

// StoreLocationProvider serves the last client-reported fix from the
// locations table.
type StoreLocationProvider struct {
	db *gorm.DB
}

func NewStoreLocationProvider(db *gorm.DB) *StoreLocationProvider {
	return &StoreLocationProvider{db: db}
}

func (p *StoreLocationProvider) CurrentPosition(ctx context.Context, userID string) (Position, error) {
	var loc models.UserLocation
	err := p.db.WithContext(ctx).First(&loc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Position{}, ErrNoFix
	}
	if err != nil {
		return Position{}, err
	}
	return Position{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

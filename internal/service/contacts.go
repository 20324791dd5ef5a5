package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/errors"
)

// ErrNameRequired rejects contacts without a name before any store call.
var ErrNameRequired = errors.WithCode(4001, "contact name is required")

// ContactService is CRUD over the emergency contacts of one owner.
type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

func (s *ContactService) Add(ctx context.Context, userID, name, phone string, contactUserID *string, priority int) (*models.EmergencyContact, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if priority <= 0 {
		priority = 1
	}
	contact := models.EmergencyContact{
		UserID:        userID,
		ContactUserID: contactUserID,
		ContactName:   strings.TrimSpace(name),
		ContactPhone:  phone,
		Priority:      priority,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, errors.Wrap(err, "failed to add emergency contact")
	}
	return &contact, nil
}

// Remove hard-deletes. The confirmation step lives in the client UI.
func (s *ContactService) Remove(ctx context.Context, userID, contactID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		Delete(&models.EmergencyContact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("contact not found")
	}
	return nil
}

func (s *ContactService) Toggle(ctx context.Context, userID, contactID string, active bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.EmergencyContact{}).
		Where("id = ? AND user_id = ?", contactID, userID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("contact not found")
	}
	return nil
}

func (s *ContactService) List(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	var contacts []models.EmergencyContact
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority ASC").
		Find(&contacts).Error
	return contacts, err
}

// ActiveLinked returns the contacts eligible for in-app fan-out: active rows
// with a linked platform user.
func (s *ContactService) ActiveLinked(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	var contacts []models.EmergencyContact
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND contact_user_id IS NOT NULL", userID, true).
		Order("priority ASC").
		Find(&contacts).Error
	return contacts, err
}

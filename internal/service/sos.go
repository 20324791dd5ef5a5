package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/errors"
	"scorta/pkg/i18n"
	"scorta/pkg/logger"
	"scorta/pkg/metrics"
)

var ErrNoActiveAlert = errors.WithCode(4040, "no active SOS alert")

// TriggerResult is what the client gets back from an SOS trigger. Demo marks
// the unauthenticated degradation path: no alert is persisted, but the call
// still succeeds so UI flows can be exercised without an account.
type TriggerResult struct {
	Success bool   `json:"success"`
	AlertID string `json:"alert_id,omitempty"`
	Demo    bool   `json:"demo,omitempty"`
	Message string `json:"message,omitempty"`
}

// SOSService orchestrates the emergency flow: alert lifecycle, the periodic
// location push while an alert is active, notification rows for contacts and
// the audio capture session.
type SOSService struct {
	db       *gorm.DB
	provider LocationProvider
	location *LocationService
	audio    *AudioService
	contacts *ContactService
	profiles *ProfileService
	i18n     *i18n.Support
	metrics  *metrics.Metrics

	pushInterval time.Duration

	mu      sync.Mutex
	tracked map[string]string // userID -> active alert ID
}

func NewSOSService(db *gorm.DB, provider LocationProvider, location *LocationService, audio *AudioService, contacts *ContactService, profiles *ProfileService, t *i18n.Support, m *metrics.Metrics, pushInterval time.Duration) *SOSService {
	if pushInterval <= 0 {
		pushInterval = 5 * time.Second
	}
	return &SOSService{
		db:           db,
		provider:     provider,
		location:     location,
		audio:        audio,
		contacts:     contacts,
		profiles:     profiles,
		i18n:         t,
		metrics:      m,
		pushInterval: pushInterval,
		tracked:      make(map[string]string),
	}
}

// Trigger fires an SOS for the caller. At most one active alert per user:
// the check and the insert run in one transaction, and the in-memory tracker
// short-circuits the common double-tap without touching the database.
func (s *SOSService) Trigger(ctx context.Context, userID, lang string) TriggerResult {
	if userID == "" {
		return TriggerResult{
			Success: true,
			AlertID: fmt.Sprintf("mock-%d", time.Now().UnixMilli()),
			Demo:    true,
			Message: s.i18n.T(lang, "sos.demo_mode", nil),
		}
	}

	s.mu.Lock()
	if _, active := s.tracked[userID]; active {
		s.mu.Unlock()
		return TriggerResult{Message: s.i18n.T(lang, "sos.already_active", nil)}
	}
	s.mu.Unlock()

	// best effort: an alert with (0,0) is still better than no alert
	var lat, lng float64
	if pos, err := s.provider.CurrentPosition(ctx, userID); err == nil {
		lat, lng = pos.Latitude, pos.Longitude
	} else {
		logger.Warn("sos trigger without position fix", zap.String("user", userID), zap.Error(err))
	}

	alert := models.SOSAlert{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lng,
		Status:    models.SOSStatusActive,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.SOSAlert{}).
			Where("user_id = ? AND status = ?", userID, models.SOSStatusActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.WithCode(4090, "SOS already active")
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		if errors.GetCode(err) == 4090 {
			return TriggerResult{Message: s.i18n.T(lang, "sos.already_active", nil)}
		}
		logger.Error("sos alert create failed", zap.String("user", userID), zap.Error(err))
		return TriggerResult{Message: s.i18n.T(lang, "sos.create_failed", nil)}
	}

	s.mu.Lock()
	s.tracked[userID] = alert.ID
	s.mu.Unlock()
	s.metrics.SOSTriggered.Inc()

	// side effects after the alert exists; none of them can fail the trigger
	if err := s.location.ToggleSharing(ctx, userID, true); err != nil {
		logger.Warn("sos: enable sharing failed", zap.String("user", userID), zap.Error(err))
	}
	s.location.StartAutoUpdate(userID, s.pushInterval)
	s.notifyContacts(ctx, &alert)
	s.audio.StartSession(userID, alert.ID)

	logger.Info("sos triggered",
		zap.String("user", userID),
		zap.String("alert", alert.ID),
		zap.Float64("lat", lat),
		zap.Float64("lng", lng))
	return TriggerResult{Success: true, AlertID: alert.ID}
}

// notifyContacts writes one notification row per active linked contact.
// Contacts without a platform account only reach the SMS path, handled by
// the alert listener.
func (s *SOSService) notifyContacts(ctx context.Context, alert *models.SOSAlert) {
	contacts, err := s.contacts.ActiveLinked(ctx, alert.UserID)
	if err != nil {
		logger.Warn("sos: contact lookup failed", zap.String("alert", alert.ID), zap.Error(err))
		return
	}
	for _, c := range contacts {
		n := models.SOSNotification{
			SOSAlertID:      alert.ID,
			RecipientUserID: *c.ContactUserID,
		}
		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			logger.Warn("sos: notification row create failed",
				zap.String("alert", alert.ID),
				zap.String("recipient", *c.ContactUserID),
				zap.Error(err))
		}
	}
}

// Deactivate resolves the caller's active alert.
func (s *SOSService) Deactivate(ctx context.Context, userID string) error {
	return s.close(ctx, userID, models.SOSStatusResolved)
}

// Cancel marks the active alert as a false trigger.
func (s *SOSService) Cancel(ctx context.Context, userID string) error {
	return s.close(ctx, userID, models.SOSStatusCancelled)
}

func (s *SOSService) close(ctx context.Context, userID, status string) error {
	s.mu.Lock()
	alertID := s.tracked[userID]
	s.mu.Unlock()

	if alertID == "" {
		alert, err := s.ActiveAlert(ctx, userID)
		if err != nil {
			return err
		}
		alertID = alert.ID
	}

	var alert models.SOSAlert
	if err := s.db.WithContext(ctx).First(&alert, "id = ?", alertID).Error; err != nil {
		return err
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&alert).
		Where("user_id = ? AND status = ?", userID, models.SOSStatusActive).
		Updates(map[string]any{"status": status, "resolved_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveAlert
	}

	s.mu.Lock()
	delete(s.tracked, userID)
	s.mu.Unlock()

	s.location.StopAutoUpdate(userID)
	if _, err := s.audio.StopSession(userID); err != nil && err != ErrNoActiveSession {
		logger.Warn("sos: audio session stop failed", zap.String("user", userID), zap.Error(err))
	}

	switch status {
	case models.SOSStatusResolved:
		s.metrics.SOSResolved.Inc()
	case models.SOSStatusCancelled:
		s.metrics.SOSCancelled.Inc()
	}
	logger.Info("sos closed", zap.String("user", userID), zap.String("alert", alertID), zap.String("status", status))
	return nil
}

// ActiveAlert returns the caller's active alert, rehydrating the tracker
// after a restart.
func (s *SOSService) ActiveAlert(ctx context.Context, userID string) (*models.SOSAlert, error) {
	var alert models.SOSAlert
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SOSStatusActive).
		Order("triggered_at DESC").
		First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNoActiveAlert
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tracked[userID] = alert.ID
	s.mu.Unlock()
	return &alert, nil
}

// ReceivedAlerts lists still-active alerts addressed to the caller, joined
// with the sender's display name.
func (s *SOSService) ReceivedAlerts(ctx context.Context, recipientID string) ([]models.ReceivedAlert, error) {
	var notifications []models.SOSNotification
	err := s.db.WithContext(ctx).
		Where("recipient_user_id = ?", recipientID).
		Order("sent_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return []models.ReceivedAlert{}, nil
	}

	alertIDs := make([]string, 0, len(notifications))
	for _, n := range notifications {
		alertIDs = append(alertIDs, n.SOSAlertID)
	}

	var alerts []models.SOSAlert
	err = s.db.WithContext(ctx).
		Where("id IN ? AND status = ?", alertIDs, models.SOSStatusActive).
		Order("triggered_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return []models.ReceivedAlert{}, nil
	}

	ownerIDs := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ownerIDs = append(ownerIDs, a.UserID)
	}
	names, err := s.profiles.DisplayNames(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReceivedAlert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, models.ReceivedAlert{SOSAlert: a, UserName: names[a.UserID]})
	}
	return out, nil
}

// MarkNotificationRead stamps read_at on the recipient's notification row.
func (s *SOSService) MarkNotificationRead(ctx context.Context, recipientID, notificationID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.SOSNotification{}).
		Where("id = ? AND recipient_user_id = ? AND read_at IS NULL", notificationID, recipientID).
		Update("read_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("notification not found")
	}
	return nil
}

// Stop halts every tracked alert's push loop; alert rows stay active and
// are rehydrated on the next ActiveAlert read.
func (s *SOSService) Stop() {
	s.mu.Lock()
	users := make([]string, 0, len(s.tracked))
	for u := range s.tracked {
		users = append(users, u)
	}
	s.mu.Unlock()
	for _, u := range users {
		s.location.StopAutoUpdate(u)
	}
}

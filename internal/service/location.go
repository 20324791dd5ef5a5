package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scorta/internal/models"
	"scorta/pkg/errors"
	"scorta/pkg/logger"
	"scorta/pkg/scheduler"
)

// LocationService owns the current-position table, the viewer permission
// rows and the auto-update loops that keep positions fresh.
type LocationService struct {
	db       *gorm.DB
	provider LocationProvider
	sched    *scheduler.Scheduler

	mu          sync.Mutex
	autoUpdates map[string]context.CancelFunc
}

func NewLocationService(db *gorm.DB, provider LocationProvider, sched *scheduler.Scheduler) *LocationService {
	return &LocationService{
		db:          db,
		provider:    provider,
		sched:       sched,
		autoUpdates: make(map[string]context.CancelFunc),
	}
}

// UpdateMyLocation upserts the caller's single position row. Last write wins;
// no history is kept.
func (s *LocationService) UpdateMyLocation(ctx context.Context, userID string, lat, lng float64, sharing bool) error {
	loc := models.UserLocation{
		UserID:           userID,
		Latitude:         lat,
		Longitude:        lng,
		IsSharingEnabled: sharing,
		LastUpdated:      time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&loc).Error
}

// ToggleSharing flips the sharing flag. A user without a position row yet
// gets one at (0,0) so the flag survives until the first real fix arrives.
func (s *LocationService) ToggleSharing(ctx context.Context, userID string, enabled bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.UserLocation{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"is_sharing_enabled": enabled, "last_updated": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.db.WithContext(ctx).Create(&models.UserLocation{
			UserID:           userID,
			IsSharingEnabled: enabled,
			LastUpdated:      time.Now().UTC(),
		}).Error
	}
	return nil
}

func (s *LocationService) GrantPermission(ctx context.Context, ownerID, viewerID, permissionType string, expiresAt *time.Time) (*models.SharingPermission, error) {
	if permissionType == "" {
		permissionType = models.PermissionExplicit
	}
	perm := models.SharingPermission{
		OwnerID:        ownerID,
		ViewerID:       viewerID,
		PermissionType: permissionType,
		IsActive:       true,
		ExpiresAt:      expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&perm).Error; err != nil {
		return nil, errors.Wrap(err, "failed to grant location permission")
	}
	return &perm, nil
}

// RevokePermission soft-deletes: the row stays for history, IsActive drops.
func (s *LocationService) RevokePermission(ctx context.Context, ownerID, viewerID string) error {
	return s.db.WithContext(ctx).
		Model(&models.SharingPermission{}).
		Where("owner_id = ? AND viewer_id = ? AND is_active = ?", ownerID, viewerID, true).
		Update("is_active", false).Error
}

func (s *LocationService) MyPermissions(ctx context.Context, ownerID string) ([]models.SharingPermission, error) {
	var perms []models.SharingPermission
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&perms).Error
	return perms, err
}

// SharedLocations returns the live positions the viewer may see: active and
// unexpired permissions, owners with sharing enabled, joined with names.
func (s *LocationService) SharedLocations(ctx context.Context, viewerID string) ([]models.SharedLocation, error) {
	now := time.Now().UTC()

	var perms []models.SharingPermission
	err := s.db.WithContext(ctx).
		Where("viewer_id = ? AND is_active = ?", viewerID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return []models.SharedLocation{}, nil
	}

	ownerIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		ownerIDs = append(ownerIDs, p.OwnerID)
	}

	var locations []models.UserLocation
	err = s.db.WithContext(ctx).
		Where("user_id IN ? AND is_sharing_enabled = ?", ownerIDs, true).
		Find(&locations).Error
	if err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ownerIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	names := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p
	}

	out := make([]models.SharedLocation, 0, len(locations))
	for _, loc := range locations {
		entry := models.SharedLocation{
			UserID:           loc.UserID,
			Name:             "Utente",
			Role:             "user",
			Latitude:         loc.Latitude,
			Longitude:        loc.Longitude,
			IsSharingEnabled: loc.IsSharingEnabled,
			LastUpdated:      loc.LastUpdated,
		}
		if p, ok := names[loc.UserID]; ok {
			if p.FullName != "" {
				entry.Name = p.FullName
			}
			if p.Role != "" {
				entry.Role = p.Role
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// StartAutoUpdate begins a per-user loop that re-reads the provider and
// upserts the position. Idempotent per user.
func (s *LocationService) StartAutoUpdate(userID string, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.autoUpdates[userID]; running {
		return
	}
	s.autoUpdates[userID] = s.sched.Every(interval, scheduler.FuncJob(func(ctx context.Context) {
		pos, err := s.provider.CurrentPosition(ctx, userID)
		if err != nil {
			logger.Debug("auto update: no fix", zap.String("user", userID), zap.Error(err))
			return
		}
		if err := s.UpdateMyLocation(ctx, userID, pos.Latitude, pos.Longitude, true); err != nil {
			logger.Warn("auto update: position upsert failed", zap.String("user", userID), zap.Error(err))
		}
	}))
}

func (s *LocationService) StopAutoUpdate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.autoUpdates[userID]; ok {
		cancel()
		delete(s.autoUpdates, userID)
	}
}

// SweepExpiredPermissions flips expired permission rows inactive. Run from
// cron; read paths already exclude expired rows, the sweep keeps the table
// honest for direct queries.
func (s *LocationService) SweepExpiredPermissions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.SharingPermission{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, time.Now().UTC()).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.Info("permission sweep", zap.Int64("expired", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

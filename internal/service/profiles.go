package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/cache"
)

const profileCacheTTL = 5 * time.Minute

// ProfileService reads identity rows with a read-through cache, mirroring
// the clients' local profile cache.
type ProfileService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewProfileService(db *gorm.DB, c cache.Cache) *ProfileService {
	return &ProfileService{db: db, cache: c}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	key := "profile:" + id
	if v, ok := s.cache.Get(ctx, key); ok {
		if p, ok := v.(*models.Profile); ok {
			return p, nil
		}
	}

	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, &p, profileCacheTTL)
	return &p, nil
}

func (s *ProfileService) Upsert(ctx context.Context, p *models.Profile) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return err
	}
	return s.cache.Delete(ctx, "profile:"+p.ID)
}

// DisplayNames maps user ids to full names, "Utente" for unknowns.
func (s *ProfileService) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p.FullName
	}
	for _, id := range ids {
		name := byID[id]
		if name == "" {
			name = "Utente"
		}
		out[id] = name
	}
	return out, nil
}

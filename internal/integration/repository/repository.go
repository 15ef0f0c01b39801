package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/pricesync/internal/integration/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, in *domain.Integration) error {
	return db.WithContext(ctx).Create(in).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, projectID, platform string) (*domain.Integration, error) {
	var in domain.Integration
	err := db.WithContext(ctx).
		Where("project_id = ? AND platform = ? AND is_active = ?", projectID, platform, true).
		Order("created_at desc").
		First(&in).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &in, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, projectID, platform string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Integration{}).
		Where("project_id = ? AND platform = ? AND is_active = ?", projectID, platform, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		}).Error
}

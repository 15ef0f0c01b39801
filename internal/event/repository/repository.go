package repository

import (
	"context"

	"github.com/smallbiznis/pricesync/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *domain.Event) error {
	if e == nil {
		return nil
	}
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) ListByKind(ctx context.Context, db *gorm.DB, projectID string, kind domain.Kind) ([]*domain.Event, error) {
	var events []*domain.Event
	err := db.WithContext(ctx).
		Where("project_id = ? AND kind = ?", projectID, string(kind)).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

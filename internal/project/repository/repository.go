package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/pricesync/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Project) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, projectID, userID string) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

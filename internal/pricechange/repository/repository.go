package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pc *domain.PriceChange) error {
	if pc == nil {
		return nil
	}
	return db.WithContext(ctx).Create(pc).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.PriceChange, error) {
	var pc domain.PriceChange
	err := db.WithContext(ctx).Where("id = ?", id).First(&pc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pc, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PriceChange, error) {
	var items []*domain.PriceChange
	stmt := db.WithContext(ctx).Model(&domain.PriceChange{}).
		Where("project_id = ?", filter.ProjectID)

	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.AfterCreatedAt != nil && filter.AfterID != "" {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			*filter.AfterCreatedAt,
			*filter.AfterCreatedAt,
			filter.AfterID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Transition is a single conditional UPDATE guarded on the current status,
// so of two concurrent callers only one can observe a matching row.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, t domain.Transition) error {
	if len(t.From) == 0 {
		return domain.ErrInvalidStatus
	}
	from := make([]string, 0, len(t.From))
	for _, s := range t.From {
		from = append(from, string(s))
	}

	updates := map[string]interface{}{
		"status":     string(t.To),
		"updated_at": t.UpdatedAt,
	}
	if t.ApprovedBy != nil {
		updates["approved_by"] = *t.ApprovedBy
	}
	if t.AppliedAt != nil {
		updates["applied_at"] = *t.AppliedAt
	}
	if t.ConnectorStatus != nil {
		updates["connector_status"] = domain.NullConnectorStatus{Status: *t.ConnectorStatus, Valid: true}
	}

	res := db.WithContext(ctx).
		Model(&domain.PriceChange{}).
		Where("id = ? AND project_id = ? AND status IN ?", t.ID, t.ProjectID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidStatus
	}
	return nil
}

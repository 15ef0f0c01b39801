package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/pricesync/internal/price/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Price) error {
	if p == nil {
		return nil
	}
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindBySkuCurrency(ctx context.Context, db *gorm.DB, skuID, currency string) (*domain.Price, error) {
	var price domain.Price
	err := db.WithContext(ctx).
		Where("sku_id = ? AND currency = ?", skuID, strings.ToUpper(strings.TrimSpace(currency))).
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}

func (r *repo) UpdateAmount(ctx context.Context, db *gorm.DB, id string, amount int64, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Price{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"amount":     amount,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPriceNotFound
	}
	return nil
}

func (r *repo) InsertVersion(ctx context.Context, db *gorm.DB, v *domain.PriceVersion) error {
	if v == nil {
		return nil
	}
	return db.WithContext(ctx).Create(v).Error
}

func (r *repo) ListVersions(ctx context.Context, db *gorm.DB, priceID string) ([]*domain.PriceVersion, error) {
	var versions []*domain.PriceVersion
	err := db.WithContext(ctx).
		Where("price_id = ?", priceID).
		Order("created_at asc, id asc").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

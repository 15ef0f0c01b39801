package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Price is the live amount for one (sku, currency) pair.
type Price struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID string    `gorm:"type:varchar(64);not null;index" json:"project_id"`
	SkuID     string    `gorm:"column:sku_id;type:varchar(64);not null;uniqueIndex:ux_prices_sku_currency" json:"sku_id"`
	Currency  string    `gorm:"type:varchar(3);not null;uniqueIndex:ux_prices_sku_currency" json:"currency"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Price) TableName() string { return "prices" }

// PriceVersion snapshots the amount a Price held before a mutation.
type PriceVersion struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PriceID       string    `gorm:"type:varchar(64);not null;index" json:"price_id"`
	PriceChangeID string    `gorm:"type:varchar(64);index" json:"price_change_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(3);not null" json:"currency"`
	Note          string    `gorm:"type:text" json:"note"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (PriceVersion) TableName() string { return "price_versions" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Price) error
	FindBySkuCurrency(ctx context.Context, db *gorm.DB, skuID, currency string) (*Price, error)
	UpdateAmount(ctx context.Context, db *gorm.DB, id string, amount int64, now time.Time) error
	InsertVersion(ctx context.Context, db *gorm.DB, v *PriceVersion) error
	ListVersions(ctx context.Context, db *gorm.DB, priceID string) ([]*PriceVersion, error)
}

var ErrPriceNotFound = errors.New("price_not_found")

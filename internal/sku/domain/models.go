package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sku is a sellable unit. Attributes carries per-platform data keyed by
// platform name, e.g. {"shopify": {"variantId": "123"}}.
type Sku struct {
	ID         string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID  string            `gorm:"type:varchar(64);not null;index" json:"project_id"`
	Code       string            `gorm:"type:varchar(128);not null" json:"code"`
	Name       string            `gorm:"type:varchar(255)" json:"name"`
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

func (Sku) TableName() string { return "skus" }

// PlatformString reads attributes[platform][key] when it is a non-empty
// string or number.
func (s *Sku) PlatformString(platform, key string) string {
	if s == nil || s.Attributes == nil {
		return ""
	}
	section, ok := s.Attributes[platform].(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(section[key])
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, s *Sku) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Sku, error)
}

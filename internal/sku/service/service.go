package service

import (
	"context"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	skudomain "github.com/smallbiznis/pricesync/internal/sku/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const attrVariantID = "variantId"

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo skudomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo skudomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("sku.service"),
		repo: p.Repo,
	}
}

// PlatformVariantID reads attributes[target].variantId for the SKU. An
// unknown SKU yields an empty id.
func (s *Service) PlatformVariantID(ctx context.Context, skuID string, target connectordomain.Target) (string, error) {
	sku, err := s.repo.FindByID(ctx, s.db, skuID)
	if err != nil {
		return "", err
	}
	if sku == nil {
		return "", nil
	}
	return sku.PlatformString(target.String(), attrVariantID), nil
}

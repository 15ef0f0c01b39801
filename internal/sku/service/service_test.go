package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	skudomain "github.com/smallbiznis/pricesync/internal/sku/domain"
	"github.com/smallbiznis/pricesync/internal/sku/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestPlatformVariantID(t *testing.T) {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&skudomain.Sku{}))

	repo := repository.Provide()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(context.Background(), db, &skudomain.Sku{
		ID:        "sku_1",
		ProjectID: "proj_1",
		Code:      "TEE-BLK-M",
		Attributes: datatypes.JSONMap{
			"shopify": map[string]any{"variantId": "gid://shopify/ProductVariant/42"},
			"amazon":  map[string]any{"variantId": 1234567},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repo})
	ctx := context.Background()

	id, err := svc.PlatformVariantID(ctx, "sku_1", connectordomain.TargetShopify)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/ProductVariant/42", id)

	id, err = svc.PlatformVariantID(ctx, "sku_1", connectordomain.TargetAmazon)
	require.NoError(t, err)
	assert.Equal(t, "1234567", id, "numeric ids decode as JSON numbers")

	id, err = svc.PlatformVariantID(ctx, "sku_missing", connectordomain.TargetShopify)
	require.NoError(t, err)
	assert.Empty(t, id)
}

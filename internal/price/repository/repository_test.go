package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pricesync/internal/price/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPriceAmountAndVersions(t *testing.T) {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Price{}, &domain.PriceVersion{}))

	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, db, &domain.Price{
		ID: "price_1", ProjectID: "proj_1", SkuID: "sku_1", Currency: "USD", Amount: 4990,
		CreatedAt: now, UpdatedAt: now,
	}))

	p, err := repo.FindBySkuCurrency(ctx, db, "sku_1", " usd ")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(4990), p.Amount)

	missing, err := repo.FindBySkuCurrency(ctx, db, "sku_1", "EUR")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpdateAmount(ctx, db, "price_1", 4490, now.Add(time.Hour)))
	assert.ErrorIs(t, repo.UpdateAmount(ctx, db, "price_missing", 1, now), domain.ErrPriceNotFound)

	p, err = repo.FindBySkuCurrency(ctx, db, "sku_1", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(4490), p.Amount)

	require.NoError(t, repo.InsertVersion(ctx, db, &domain.PriceVersion{
		ID: "pv_2", PriceID: "price_1", PriceChangeID: "pc_2", Amount: 4490, Currency: "USD", CreatedAt: now.Add(time.Hour),
	}))
	require.NoError(t, repo.InsertVersion(ctx, db, &domain.PriceVersion{
		ID: "pv_1", PriceID: "price_1", PriceChangeID: "pc_1", Amount: 4990, Currency: "USD", CreatedAt: now,
	}))

	versions, err := repo.ListVersions(ctx, db, "price_1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "pv_1", versions[0].ID)
	assert.Equal(t, "pv_2", versions[1].ID)
}

package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.PriceChange{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, id, project string, status domain.Status, createdAt time.Time) {
	t.Helper()
	require.NoError(t, Provide().Insert(context.Background(), db, &domain.PriceChange{
		ID:         id,
		TenantID:   "ten_1",
		ProjectID:  project,
		SkuID:      "sku_1",
		FromAmount: 4990,
		ToAmount:   4490,
		Currency:   "USD",
		Status:     status,
		PolicyResult: domain.NullPolicyResult{
			Result: domain.PolicyResult{OK: true, Checks: []domain.PolicyCheck{{Name: "max_discount", OK: true}}},
			Valid:  true,
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
}

func TestFindByIDRoundTripsJSONColumns(t *testing.T) {
	db := openDB(t)
	repo := Provide()
	seed(t, db, "pc_1", "proj_1", domain.StatusPending, base)

	pc, err := repo.FindByID(context.Background(), db, "pc_1")
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.True(t, pc.PolicyResult.Valid)
	assert.Equal(t, "max_discount", pc.PolicyResult.Result.Checks[0].Name)
	assert.False(t, pc.ConnectorStatus.Valid)

	missing, err := repo.FindByID(context.Background(), db, "pc_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransitionGuardsCurrentStatus(t *testing.T) {
	db := openDB(t)
	repo := Provide()
	ctx := context.Background()
	seed(t, db, "pc_1", "proj_1", domain.StatusApproved, base)

	appliedAt := base.Add(time.Hour)
	err := repo.Transition(ctx, db, domain.Transition{
		ID:        "pc_1",
		ProjectID: "proj_1",
		From:      []domain.Status{domain.StatusApproved},
		To:        domain.StatusApplied,
		AppliedAt: &appliedAt,
		ConnectorStatus: &domain.ConnectorStatus{
			Target:    connectordomain.TargetShopify,
			State:     domain.SyncSynced,
			VariantID: "gid://shopify/ProductVariant/1",
		},
		UpdatedAt: appliedAt,
	})
	require.NoError(t, err)

	pc, err := repo.FindByID(ctx, db, "pc_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, pc.Status)
	require.NotNil(t, pc.AppliedAt)
	assert.True(t, pc.AppliedAt.Equal(appliedAt))
	assert.Equal(t, domain.SyncSynced, pc.ConnectorStatus.Status.State)

	// The same transition a second time no longer matches a row.
	err = repo.Transition(ctx, db, domain.Transition{
		ID: "pc_1", ProjectID: "proj_1",
		From: []domain.Status{domain.StatusApproved}, To: domain.StatusApplied, UpdatedAt: appliedAt,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	// Another project's id never matches.
	err = repo.Transition(ctx, db, domain.Transition{
		ID: "pc_1", ProjectID: "proj_2",
		From: []domain.Status{domain.StatusApplied}, To: domain.StatusRolledBack, UpdatedAt: appliedAt,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	err = repo.Transition(ctx, db, domain.Transition{ID: "pc_1", ProjectID: "proj_1", To: domain.StatusFailed})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListOrdersNewestFirst(t *testing.T) {
	db := openDB(t)
	repo := Provide()
	ctx := context.Background()
	seed(t, db, "pc_1", "proj_1", domain.StatusPending, base)
	seed(t, db, "pc_2", "proj_1", domain.StatusApproved, base.Add(time.Minute))
	seed(t, db, "pc_3", "proj_1", domain.StatusPending, base.Add(2*time.Minute))
	seed(t, db, "pc_4", "proj_2", domain.StatusPending, base.Add(3*time.Minute))

	items, err := repo.List(ctx, db, domain.ListFilter{ProjectID: "proj_1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 3, "limit+1 rows signal another page")
	assert.Equal(t, "pc_3", items[0].ID)

	after := items[1].CreatedAt
	items, err = repo.List(ctx, db, domain.ListFilter{ProjectID: "proj_1", Limit: 2, AfterID: "pc_2", AfterCreatedAt: &after})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "pc_1", items[0].ID)

	items, err = repo.List(ctx, db, domain.ListFilter{ProjectID: "proj_1", Status: domain.StatusPending})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

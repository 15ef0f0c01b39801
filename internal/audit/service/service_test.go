package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/audit/repository"
	"github.com/smallbiznis/pricesync/internal/clock"
	obscontext "github.com/smallbiznis/pricesync/internal/observability/context"
	"github.com/smallbiznis/pricesync/pkg/db/pagination"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&auditdomain.Audit{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db, clk
}

func TestRecordFillsFromContext(t *testing.T) {
	svc, db, _ := newTestService(t)

	ctx := obscontext.WithProjectID(context.Background(), "proj_1")
	ctx = obscontext.WithActorID(ctx, "usr_1")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = correlation.ContextWithCorrelationID(ctx, "corr_1")

	err := svc.Record(ctx, nil, auditdomain.Record{
		Entity:   auditdomain.EntityPriceChange,
		EntityID: "pc_1",
		Action:   "price_change.applied",
		Explain: map[string]any{
			"target":       "shopify",
			"access_token": "shpat_1234567890",
		},
	})
	require.NoError(t, err)

	var got auditdomain.Audit
	require.NoError(t, db.First(&got).Error)
	assert.True(t, strings.HasPrefix(got.ID, "aud_"))
	assert.Equal(t, "proj_1", got.ProjectID)
	assert.Equal(t, "usr_1", got.Actor)
	assert.Equal(t, "corr_1", got.CorrelationID)
	assert.Equal(t, "shopify", got.Explain["target"])
	assert.Equal(t, "shpat_****7890", got.Explain["access_token"])
	assert.Equal(t, "req-1", got.Explain["request_id"])
}

func TestRecordDefaultsActorAndCorrelation(t *testing.T) {
	svc, db, _ := newTestService(t)

	err := svc.Record(context.Background(), db, auditdomain.Record{
		ProjectID: "proj_1",
		Entity:    auditdomain.EntityPriceChange,
		EntityID:  "pc_1",
		Action:    "price_change.approved",
	})
	require.NoError(t, err)

	var got auditdomain.Audit
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "system", got.Actor)
	assert.True(t, strings.HasPrefix(got.CorrelationID, "corr_"))
	assert.Empty(t, got.Explain)
}

func TestRecordValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, nil, auditdomain.Record{ProjectID: "proj_1", Entity: "price_change", EntityID: "pc_1"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(ctx, nil, auditdomain.Record{ProjectID: "proj_1", Entity: "price_change", Action: "x"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidEntity)

	err = svc.Record(ctx, nil, auditdomain.Record{Entity: "price_change", EntityID: "pc_1", Action: "x"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidProject)
}

func TestRecordJoinsCallerTransaction(t *testing.T) {
	svc, db, _ := newTestService(t)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(context.Background(), tx, auditdomain.Record{
			ProjectID: "proj_1", Entity: "price_change", EntityID: "pc_1", Action: "price_change.applied",
		}))
		return assert.AnError
	})

	var count int64
	require.NoError(t, db.Model(&auditdomain.Audit{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListNewestFirstWithCursor(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	for _, action := range []string{"price_change.approved", "price_change.applied", "price_change.rolled_back"} {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.Record{
			ProjectID: "proj_1", Entity: "price_change", EntityID: "pc_1", Action: action,
		}))
		clk.Advance(time.Minute)
	}
	require.NoError(t, svc.Record(ctx, nil, auditdomain.Record{
		ProjectID: "proj_2", Entity: "price_change", EntityID: "pc_9", Action: "price_change.approved",
	}))

	first, err := svc.List(ctx, auditdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		ProjectID:  "proj_1",
		Entity:     "price_change",
		EntityID:   "pc_1",
	})
	require.NoError(t, err)
	require.Len(t, first.Audits, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "price_change.rolled_back", first.Audits[0].Action)
	assert.Equal(t, "price_change.applied", first.Audits[1].Action)

	second, err := svc.List(ctx, auditdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		ProjectID:  "proj_1",
	})
	require.NoError(t, err)
	require.Len(t, second.Audits, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "price_change.approved", second.Audits[0].Action)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), auditdomain.ListRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidProject)

	_, err = svc.List(context.Background(), auditdomain.ListRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
		ProjectID:  "proj_1",
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

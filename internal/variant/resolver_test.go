package variant

import (
	"context"
	"errors"
	"testing"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	pricechangedomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeSkus struct {
	id    string
	err   error
	calls int
}

func (f *fakeSkus) PlatformVariantID(context.Context, string, connectordomain.Target) (string, error) {
	f.calls++
	return f.id, f.err
}

func strPtr(s string) *string { return &s }

func TestResolvePrecedence(t *testing.T) {
	skus := &fakeSkus{id: "from_sku"}
	r := NewResolver(skus, zap.NewNop())
	ctx := context.Background()
	shopify := connectordomain.TargetShopify

	pc := &pricechangedomain.PriceChange{
		SkuID:             "sku_1",
		ExternalVariantID: strPtr("from_record"),
		Context: datatypes.JSONMap{
			"shopifyVariantId": "from_context_platform",
			"variantId":        "from_context_generic",
		},
		ConnectorStatus: pricechangedomain.NullConnectorStatus{Valid: true, Status: pricechangedomain.ConnectorStatus{
			Metadata: map[string]any{"variantId": "from_status"},
		}},
	}

	got, ok := r.Resolve(ctx, pc, shopify)
	assert.True(t, ok)
	assert.Equal(t, Resolution{VariantID: "from_record", Source: SourceRecord}, got)

	pc.ExternalVariantID = strPtr("  ")
	got, _ = r.Resolve(ctx, pc, shopify)
	assert.Equal(t, "from_context_platform", got.VariantID)

	delete(pc.Context, "shopifyVariantId")
	got, _ = r.Resolve(ctx, pc, shopify)
	assert.Equal(t, "from_context_generic", got.VariantID)

	pc.Context = datatypes.JSONMap{"externalVariantId": float64(4455)}
	got, _ = r.Resolve(ctx, pc, shopify)
	assert.Equal(t, Resolution{VariantID: "4455", Source: SourceContext}, got)

	pc.Context = nil
	got, _ = r.Resolve(ctx, pc, shopify)
	assert.Equal(t, Resolution{VariantID: "from_status", Source: SourceConnectorStatus}, got)
	assert.Zero(t, skus.calls)

	pc.ConnectorStatus = pricechangedomain.NullConnectorStatus{}
	got, _ = r.Resolve(ctx, pc, shopify)
	assert.Equal(t, Resolution{VariantID: "from_sku", Source: SourceSkuAttributes}, got)
}

func TestResolvePlatformKeyFollowsTarget(t *testing.T) {
	r := NewResolver(nil, zap.NewNop())
	pc := &pricechangedomain.PriceChange{Context: datatypes.JSONMap{"shopifyVariantId": "shop_1"}}

	_, ok := r.Resolve(context.Background(), pc, connectordomain.TargetAmazon)
	assert.False(t, ok)

	pc.Context["amazonVariantId"] = "asin_1"
	got, ok := r.Resolve(context.Background(), pc, connectordomain.TargetAmazon)
	assert.True(t, ok)
	assert.Equal(t, "asin_1", got.VariantID)
}

func TestResolveLookupFailureIsTreatedAsMissing(t *testing.T) {
	r := NewResolver(&fakeSkus{err: errors.New("db down")}, zap.NewNop())
	_, ok := r.Resolve(context.Background(), &pricechangedomain.PriceChange{SkuID: "sku_1"}, connectordomain.TargetShopify)
	assert.False(t, ok)

	_, ok = r.Resolve(context.Background(), nil, connectordomain.TargetShopify)
	assert.False(t, ok)
}

func TestResolveForRollbackPrefersSyncedVariant(t *testing.T) {
	r := NewResolver(nil, zap.NewNop())
	pc := &pricechangedomain.PriceChange{
		ExternalVariantID: strPtr("from_record"),
		ConnectorStatus: pricechangedomain.NullConnectorStatus{Valid: true, Status: pricechangedomain.ConnectorStatus{
			VariantID: "synced_variant",
		}},
	}
	got, ok := r.ResolveForRollback(context.Background(), pc, connectordomain.TargetShopify)
	assert.True(t, ok)
	assert.Equal(t, Resolution{VariantID: "synced_variant", Source: SourceConnectorStatus}, got)

	pc.ConnectorStatus.Status.VariantID = ""
	got, _ = r.ResolveForRollback(context.Background(), pc, connectordomain.TargetShopify)
	assert.Equal(t, "from_record", got.VariantID)
}

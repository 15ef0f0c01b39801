package compensation

import (
	"context"
	"errors"
	"testing"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/connector/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type panicGateway struct{}

func (panicGateway) Target() connectordomain.Target { return connectordomain.TargetShopify }

func (panicGateway) UpdatePrice(context.Context, connectordomain.UpdatePriceRequest) (*connectordomain.UpdatePriceResult, error) {
	panic("boom")
}

func TestRevertSuccess(t *testing.T) {
	gw := memory.New(connectordomain.TargetShopify, nil)
	c := NewCoordinator(zap.NewNop(), nil)

	out := c.Revert(context.Background(), Request{Gateway: gw, VariantID: "v1", PriorAmount: 4990, Currency: "USD"})
	assert.Equal(t, OutcomeReverted, out.Status)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(4990), calls[0].Price)
}

func TestRevertSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c := NewCoordinator(zap.New(core), nil)
	gw := memory.New(connectordomain.TargetShopify, nil)

	gw.ErrorNext(errors.New("timeout"))
	out := c.Revert(context.Background(), Request{Gateway: gw, VariantID: "v1", PriorAmount: 4990, Currency: "USD"})
	assert.Equal(t, OutcomeFailed, out.Status)
	assert.Equal(t, "timeout", out.Error)

	gw.FailNext("API failure", true)
	out = c.Revert(context.Background(), Request{Gateway: gw, VariantID: "v1", PriorAmount: 4990, Currency: "USD"})
	assert.Equal(t, OutcomeFailed, out.Status)
	assert.Equal(t, "API failure", out.Error)

	out = c.Revert(context.Background(), Request{Gateway: panicGateway{}, VariantID: "v1", PriorAmount: 1, Currency: "USD"})
	assert.Equal(t, OutcomeFailed, out.Status)
	assert.Contains(t, out.Error, "panic")

	assert.Equal(t, 3, logs.Len())
}

func TestRevertSkipsWithoutVariant(t *testing.T) {
	c := NewCoordinator(zap.NewNop(), nil)
	out := c.Revert(context.Background(), Request{})
	assert.Equal(t, OutcomeSkipped, out.Status)
	assert.Equal(t, map[string]any{"status": OutcomeSkipped, "error": "no gateway or variant to revert"}, out.Explain())
}

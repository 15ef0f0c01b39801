package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/connector/memory"
	"github.com/smallbiznis/pricesync/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Take(_ context.Context, key string, _ ratelimit.Rule) (ratelimit.Decision, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return ratelimit.Decision{}, f.err
	}
	return ratelimit.Decision{Allowed: f.allowed, RetryAfter: 1500 * time.Millisecond}, nil
}

func testClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestRegistryUnknownTarget(t *testing.T) {
	reg := NewRegistry(memory.NewFactory(memory.New(domain.TargetShopify, nil)))
	assert.True(t, reg.Supports(domain.TargetShopify))
	assert.False(t, reg.Supports(domain.TargetAmazon))

	_, err := reg.NewGateway(domain.TargetAmazon, domain.Config{})
	assert.ErrorIs(t, err, domain.ErrTargetNotSupported)

	var nilRegistry *Registry
	_, err = nilRegistry.NewGateway(domain.TargetShopify, domain.Config{})
	assert.ErrorIs(t, err, domain.ErrTargetNotSupported)
}

func TestRegistryAppliesMiddlewareOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) domain.Middleware {
		return func(next domain.Gateway, _ domain.Config) domain.Gateway {
			order = append(order, name)
			return next
		}
	}
	reg := NewRegistry(memory.NewFactory(memory.New(domain.TargetShopify, nil))).Use(tag("outer"), tag("inner"))

	_, err := reg.NewGateway(domain.TargetShopify, domain.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestThrottleDeniesWithRetryableFailure(t *testing.T) {
	clk := testClock()
	inner := memory.New(domain.TargetShopify, clk)
	limiter := &fakeLimiter{allowed: false}
	reg := NewRegistry(memory.NewFactory(inner)).Use(Throttle(limiter, clk, zap.NewNop()))

	gw, err := reg.NewGateway(domain.TargetShopify, domain.Config{
		ProjectID: "proj_1",
		Settings:  config.ConnectorSettings{Rate: 1, Burst: 1},
	})
	require.NoError(t, err)

	res, err := gw.UpdatePrice(context.Background(), domain.UpdatePriceRequest{ExternalID: "v1", Price: 100, Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.IsRetryable())
	assert.Contains(t, res.Error, "rate limited")
	assert.Empty(t, inner.Calls())
	assert.Equal(t, []string{"pricesync:connector:shopify:proj_1"}, limiter.keys)
}

func TestThrottleFailsOpen(t *testing.T) {
	clk := testClock()
	inner := memory.New(domain.TargetShopify, clk)
	limiter := &fakeLimiter{err: errors.New("redis down")}
	reg := NewRegistry(memory.NewFactory(inner)).Use(Throttle(limiter, clk, zap.NewNop()))

	gw, err := reg.NewGateway(domain.TargetShopify, domain.Config{Settings: config.ConnectorSettings{Rate: 1, Burst: 1}})
	require.NoError(t, err)

	res, err := gw.UpdatePrice(context.Background(), domain.UpdatePriceRequest{ExternalID: "v1", Price: 100, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, inner.Calls(), 1)
}

func TestThrottleSkippedWithoutRate(t *testing.T) {
	inner := memory.New(domain.TargetShopify, nil)
	gw := Throttle(&fakeLimiter{}, testClock(), zap.NewNop())(inner, domain.Config{})
	assert.Same(t, inner, gw)
}

func TestInstrumentPassesThrough(t *testing.T) {
	inner := memory.New(domain.TargetShopify, nil)
	gw := Instrument(nil, zap.NewNop())(inner, domain.Config{ProjectID: "proj_1"})

	inner.FailNext("API failure", false)
	res, err := gw.UpdatePrice(context.Background(), domain.UpdatePriceRequest{ExternalID: "v1", Price: 100, Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.TargetShopify, gw.Target())
}

func TestProvideRegistrySandbox(t *testing.T) {
	reg := ProvideRegistry(RegistryParams{
		Cfg:   config.Config{ConnectorSandbox: true},
		Clock: testClock(),
		Log:   zap.NewNop(),
	})
	for _, target := range domain.Targets() {
		assert.True(t, reg.Supports(target), target.String())
	}

	reg = ProvideRegistry(RegistryParams{Cfg: config.Config{}, Clock: testClock(), Log: zap.NewNop()})
	assert.True(t, reg.Supports(domain.TargetShopify))
	assert.False(t, reg.Supports(domain.TargetAmazon))
}

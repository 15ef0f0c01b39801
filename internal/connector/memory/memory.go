// Package memory is an in-process connector used by the sandbox mode and
// by tests. Outcomes can be scripted and every call is recorded.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/connector/domain"
)

type outcome struct {
	err       error
	failure   string
	retryable bool
}

type Gateway struct {
	mu      sync.Mutex
	target  domain.Target
	clock   clock.Clock
	prices  map[string]int64
	calls   []domain.UpdatePriceRequest
	scripts []outcome
}

func New(target domain.Target, clk clock.Clock) *Gateway {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Gateway{
		target: target,
		clock:  clk,
		prices: map[string]int64{},
	}
}

func (g *Gateway) Target() domain.Target { return g.target }

// FailNext makes the next call report Success=false.
func (g *Gateway) FailNext(message string, retryable bool) {
	g.mu.Lock()
	g.scripts = append(g.scripts, outcome{failure: message, retryable: retryable})
	g.mu.Unlock()
}

// ErrorNext makes the next call return err.
func (g *Gateway) ErrorNext(err error) {
	g.mu.Lock()
	g.scripts = append(g.scripts, outcome{err: err})
	g.mu.Unlock()
}

func (g *Gateway) SetPrice(externalID string, price int64) {
	g.mu.Lock()
	g.prices[externalID] = price
	g.mu.Unlock()
}

func (g *Gateway) Price(externalID string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.prices[externalID]
	return p, ok
}

// Calls returns every request received, including failed ones.
func (g *Gateway) Calls() []domain.UpdatePriceRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.UpdatePriceRequest, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *Gateway) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (*domain.UpdatePriceResult, error) {
	if strings.TrimSpace(req.ExternalID) == "" || req.Price < 0 {
		return nil, domain.ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)
	now := g.clock.Now()

	if len(g.scripts) > 0 {
		next := g.scripts[0]
		g.scripts = g.scripts[1:]
		if next.err != nil {
			return nil, next.err
		}
		return domain.Failure(req, next.failure, next.retryable, now), nil
	}

	newPrice := req.Price
	res := &domain.UpdatePriceResult{
		ExternalID: req.ExternalID,
		Success:    true,
		NewPrice:   &newPrice,
		Currency:   req.Currency,
		UpdatedAt:  now,
	}
	if old, ok := g.prices[req.ExternalID]; ok {
		res.OldPrice = &old
	}
	g.prices[req.ExternalID] = req.Price
	return res, nil
}

// Factory hands out a shared Gateway regardless of credentials.
type Factory struct {
	mu       sync.Mutex
	gw       *Gateway
	buildErr error
}

func NewFactory(gw *Gateway) *Factory {
	return &Factory{gw: gw}
}

func (f *Factory) Target() domain.Target { return f.gw.Target() }

// FailBuild makes NewGateway return err until cleared with nil.
func (f *Factory) FailBuild(err error) {
	f.mu.Lock()
	f.buildErr = err
	f.mu.Unlock()
}

func (f *Factory) NewGateway(domain.Config) (domain.Gateway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f.gw, nil
}

func (f *Factory) Gateway() *Gateway { return f.gw }

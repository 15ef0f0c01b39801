// Package compensation issues best-effort inverse calls to a platform after
// a local commit failed behind a successful external mutation.
package compensation

import (
	"context"
	"fmt"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	OutcomeReverted = "reverted"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

type Request struct {
	Gateway     connectordomain.Gateway
	VariantID   string
	PriorAmount int64
	Currency    string
	Metadata    map[string]string
}

// Outcome describes what the revert did. It is informational only.
type Outcome struct {
	Status string
	Error  string
	Result *connectordomain.UpdatePriceResult
}

func (o Outcome) Explain() map[string]any {
	out := map[string]any{"status": o.Status}
	if o.Error != "" {
		out["error"] = o.Error
	}
	return out
}

type Coordinator struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewCoordinator(log *zap.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{log: log.Named("compensation"), metrics: m}
}

// Revert fires one UpdatePrice back to PriorAmount. It never returns an
// error: the caller already holds the failure it must report.
func (c *Coordinator) Revert(ctx context.Context, req Request) (out Outcome) {
	target := ""
	if req.Gateway != nil {
		target = req.Gateway.Target().String()
	}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: OutcomeFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
		c.metrics.RecordCompensation(ctx, target, out.Status)
		fields := []zap.Field{
			zap.String("target", target),
			zap.String("variant_id", req.VariantID),
			zap.Int64("prior_amount", req.PriorAmount),
			zap.String("currency", req.Currency),
			zap.String("status", out.Status),
		}
		if out.Status == OutcomeReverted {
			c.log.Info("compensation reverted external price", fields...)
			return
		}
		c.log.Error("compensation did not revert external price", append(fields, zap.String("error", out.Error))...)
	}()

	if req.Gateway == nil || req.VariantID == "" {
		return Outcome{Status: OutcomeSkipped, Error: "no gateway or variant to revert"}
	}

	res, err := req.Gateway.UpdatePrice(ctx, connectordomain.UpdatePriceRequest{
		ExternalID: req.VariantID,
		Price:      req.PriorAmount,
		Currency:   req.Currency,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return Outcome{Status: OutcomeFailed, Error: err.Error()}
	}
	if res == nil || !res.Success {
		msg := "connector reported failure"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return Outcome{Status: OutcomeFailed, Error: msg, Result: res}
	}
	return Outcome{Status: OutcomeReverted, Result: res}
}

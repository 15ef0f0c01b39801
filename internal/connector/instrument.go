package connector

import (
	"context"
	"time"

	"github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	"github.com/smallbiznis/pricesync/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Instrument wraps each call in a connector.update_price span and records
// call metrics.
func Instrument(m *metrics.Metrics, log *zap.Logger) domain.Middleware {
	return func(next domain.Gateway, cfg domain.Config) domain.Gateway {
		return &instrumented{next: next, metrics: m, log: log, projectID: cfg.ProjectID}
	}
}

type instrumented struct {
	next      domain.Gateway
	metrics   *metrics.Metrics
	log       *zap.Logger
	projectID string
}

func (i *instrumented) Target() domain.Target { return i.next.Target() }

func (i *instrumented) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (*domain.UpdatePriceResult, error) {
	target := i.next.Target().String()
	ctx, span := otel.Tracer("pricesync/connector").Start(ctx, "connector.update_price")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("connector.target", target),
		attribute.String("connector.external_id", req.ExternalID),
		attribute.String("project_id", i.projectID),
		attribute.Int64("price.amount", req.Price),
		attribute.String("price.currency", req.Currency),
	)...)

	start := time.Now()
	res, err := i.next.UpdatePrice(ctx, req)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeError
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "connector error")
	case res == nil || !res.Success:
		outcome = OutcomeFailure
		span.SetAttributes(attribute.Bool("connector.retryable", res.IsRetryable()))
		span.SetStatus(codes.Error, "connector failure")
	}
	i.metrics.RecordConnectorCall(ctx, target, outcome, elapsed)

	i.log.Debug("connector call",
		zap.String("target", target),
		zap.String("project_id", i.projectID),
		zap.String("external_id", req.ExternalID),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)
	return res, err
}

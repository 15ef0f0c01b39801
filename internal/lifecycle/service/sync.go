package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/compensation"
	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	eventdomain "github.com/smallbiznis/pricesync/internal/event/domain"
	integrationdomain "github.com/smallbiznis/pricesync/internal/integration/domain"
	lifecycledomain "github.com/smallbiznis/pricesync/internal/lifecycle/domain"
	"github.com/smallbiznis/pricesync/internal/observability/logger"
	"github.com/smallbiznis/pricesync/internal/policygate"
	pricedomain "github.com/smallbiznis/pricesync/internal/price/domain"
	pcdomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"github.com/smallbiznis/pricesync/internal/variant"
	"github.com/smallbiznis/pricesync/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// direction captures what differs between pushing a price change out and
// pulling it back.
type direction struct {
	action            string
	from              pcdomain.Status
	to                pcdomain.Status
	event             eventdomain.Kind
	failedAction      string
	compensatedAction string
	localKind         error
	rollback          bool
}

var applyDirection = direction{
	action:            lifecycledomain.ActionApply,
	from:              pcdomain.StatusApproved,
	to:                pcdomain.StatusApplied,
	event:             eventdomain.KindPriceApplied,
	failedAction:      lifecycledomain.ActionApplyFailed,
	compensatedAction: lifecycledomain.ActionApplyCompensated,
	localKind:         pcdomain.ErrInternal,
}

var rollbackDirection = direction{
	action:            lifecycledomain.ActionRollback,
	from:              pcdomain.StatusApplied,
	to:                pcdomain.StatusRolledBack,
	event:             eventdomain.KindPriceRolledBack,
	failedAction:      lifecycledomain.ActionRollbackFailed,
	compensatedAction: lifecycledomain.ActionRollbackCompensated,
	localKind:         pcdomain.ErrRollbackFailed,
	rollback:          true,
}

// amount is the price the platform should hold after this direction runs.
func (d direction) amount(pc *pcdomain.PriceChange) int64 {
	if d.rollback {
		return pc.FromAmount
	}
	return pc.ToAmount
}

// priorAmount is what compensation restores on the platform.
func (d direction) priorAmount(pc *pcdomain.PriceChange, res *connectordomain.UpdatePriceResult) int64 {
	if d.rollback {
		return pc.ToAmount
	}
	if res != nil && res.OldPrice != nil {
		return *res.OldPrice
	}
	return pc.FromAmount
}

// syncCall carries the state of one apply or rollback once the external
// mutation succeeded.
type syncCall struct {
	pc            *pcdomain.PriceChange
	dir           direction
	target        connectordomain.Target
	resolution    variant.Resolution
	gateway       connectordomain.Gateway
	result        *connectordomain.UpdatePriceResult
	metadata      map[string]string
	actor         string
	correlationID string
}

func (s *Service) sync(ctx context.Context, span trace.Span, req lifecycledomain.Request, d direction) (*lifecycledomain.PriceChange, error) {
	ctx, cid := withCorrelation(ctx, req.CorrelationID)
	log := logger.WithContext(ctx, s.log).With(zap.String("action", d.action))

	pc, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("price_change.id", pc.ID),
		attribute.String("price_change.status", string(pc.Status)),
	)
	if pc.Status != d.from {
		return nil, invalidStatus(pc.Status, d.action)
	}
	if !d.rollback && !policygate.Evaluate(pc.PolicyResult) {
		return nil, pcdomain.Fail(pcdomain.ErrPolicyViolation, "policy checks did not pass").
			WithDetail("failed_checks", policygate.FailedChecks(pc.PolicyResult))
	}

	target := s.resolveTarget(pc)
	span.SetAttributes(attribute.String("connector.target", target.String()))

	var (
		resolution variant.Resolution
		found      bool
	)
	if d.rollback {
		resolution, found = s.resolver.ResolveForRollback(ctx, pc, target)
	} else {
		resolution, found = s.resolver.Resolve(ctx, pc, target)
	}
	if !found {
		return nil, pcdomain.Fail(pcdomain.ErrMissingVariant, "no external variant id for this price change").
			WithDetail("target", target.String()).
			WithDetail("context_keys", variant.ContextKeys(target))
	}

	creds, err := s.integrations.Active(ctx, pc.ProjectID, target)
	if err != nil {
		switch {
		case errors.Is(err, integrationdomain.ErrNotConfigured),
			errors.Is(err, integrationdomain.ErrInvalidConfig),
			errors.Is(err, integrationdomain.ErrEncryptionKeyMissing):
			return nil, pcdomain.Fail(pcdomain.ErrIntegrationMissing, "no usable integration for target").
				WithCause(err).
				WithDetail("target", target.String())
		default:
			return nil, pcdomain.Fail(pcdomain.ErrInternal, "load integration").WithCause(err)
		}
	}

	gw, err := s.registry.NewGateway(target, connectordomain.Config{
		ProjectID:     pc.ProjectID,
		IntegrationID: creds.IntegrationID,
		Credentials:   creds.Values,
		Settings:      s.connectors.Settings(target.String()),
	})
	if err != nil {
		return nil, pcdomain.Fail(pcdomain.ErrConnectorUnavailable, "connector unavailable").
			WithCause(err).
			WithDetail("target", target.String())
	}

	// The platform mutation and the local commit must both run to the end
	// once started, even if the caller goes away.
	detached := context.WithoutCancel(ctx)
	actor := actorOf(req)
	metadata := map[string]string{
		"price_change_id": pc.ID,
		"project_id":      pc.ProjectID,
		"correlation_id":  cid,
		"action":          d.action,
	}
	amount := d.amount(pc)

	res, err := gw.UpdatePrice(detached, connectordomain.UpdatePriceRequest{
		ExternalID: resolution.VariantID,
		Price:      amount,
		Currency:   pc.Currency,
		Metadata:   metadata,
	})
	if err != nil || res == nil || !res.Success {
		failure := connectorFailure(err, res)
		log.Warn("connector update failed",
			zap.String("price_change_id", pc.ID),
			zap.String("target", target.String()),
			zap.String("variant_id", resolution.VariantID),
			zap.Error(failure),
		)
		explain := map[string]any{
			"target":     target.String(),
			"variant_id": resolution.VariantID,
			"error":      failure.Message,
		}
		if failure.Retryable != nil {
			explain["retryable"] = *failure.Retryable
		}
		s.recordBestEffort(detached, pc, d.failedAction, actor, cid, explain)
		return nil, failure
	}

	call := syncCall{
		pc:            pc,
		dir:           d,
		target:        target,
		resolution:    resolution,
		gateway:       gw,
		result:        res,
		metadata:      metadata,
		actor:         actor,
		correlationID: cid,
	}
	if err := s.commit(detached, call, amount); err != nil {
		return nil, s.compensate(detached, call, err)
	}

	log.Info("price change synced",
		zap.String("price_change_id", pc.ID),
		zap.String("target", target.String()),
		zap.String("variant_id", resolution.VariantID),
		zap.String("variant_source", string(resolution.Source)),
		zap.Int64("amount", amount),
	)
	return s.reload(detached, pc.ID)
}

// commit records the external mutation locally: status, price, version,
// event and audit in a single transaction.
func (s *Service) commit(ctx context.Context, call syncCall, amount int64) error {
	pc := call.pc
	now := s.clock.Now()

	oldPrice := call.dir.priorAmount(pc, call.result)
	if call.dir.rollback && call.result.OldPrice != nil {
		oldPrice = *call.result.OldPrice
	}
	newPrice := amount
	if call.result.NewPrice != nil {
		newPrice = *call.result.NewPrice
	}
	externalID := call.result.ExternalID
	if externalID == "" {
		externalID = call.resolution.VariantID
	}
	status := pcdomain.ConnectorStatus{
		Target:     call.target,
		State:      pcdomain.SyncSynced,
		VariantID:  call.resolution.VariantID,
		ExternalID: externalID,
		Metadata: map[string]any{
			"oldPrice":   oldPrice,
			"newPrice":   newPrice,
			"currency":   pc.Currency,
			"rolledBack": call.dir.rollback,
			"variantId":  call.resolution.VariantID,
		},
		UpdatedAt: &now,
	}
	update := pcdomain.Transition{
		ID:              pc.ID,
		ProjectID:       pc.ProjectID,
		From:            []pcdomain.Status{call.dir.from},
		To:              call.dir.to,
		ConnectorStatus: &status,
		UpdatedAt:       now,
	}
	if !call.dir.rollback {
		update.AppliedAt = &now
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.priceChanges.Transition(ctx, tx, update); err != nil {
			return err
		}

		price, err := s.prices.FindBySkuCurrency(ctx, tx, pc.SkuID, pc.Currency)
		if err != nil {
			return err
		}
		if price == nil {
			return pricedomain.ErrPriceNotFound
		}

		if err := s.prices.InsertVersion(ctx, tx, &pricedomain.PriceVersion{
			ID:            "pv_" + s.genID.Generate().String(),
			PriceID:       price.ID,
			PriceChangeID: pc.ID,
			Amount:        price.Amount,
			Currency:      price.Currency,
			Note:          fmt.Sprintf("%s price change %s", call.dir.action, pc.ID),
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		if err := s.prices.UpdateAmount(ctx, tx, price.ID, amount, now); err != nil {
			return err
		}

		if err := s.events.Insert(ctx, tx, &eventdomain.Event{
			ID:        "evt_" + s.genID.Generate().String(),
			ProjectID: pc.ProjectID,
			Kind:      call.dir.event,
			Payload: datatypes.JSONMap{
				"price_change_id": pc.ID,
				"price_id":        price.ID,
				"sku_id":          pc.SkuID,
				"currency":        pc.Currency,
				"old_amount":      price.Amount,
				"new_amount":      amount,
				"target":          call.target.String(),
				"variant_id":      call.resolution.VariantID,
				"correlation_id":  call.correlationID,
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		return s.auditSvc.Record(ctx, tx, auditdomain.Record{
			ProjectID:     pc.ProjectID,
			Entity:        auditdomain.EntityPriceChange,
			EntityID:      pc.ID,
			Action:        call.dir.action,
			Actor:         call.actor,
			CorrelationID: call.correlationID,
			Explain: map[string]any{
				"from_status":    string(call.dir.from),
				"to_status":      string(call.dir.to),
				"target":         call.target.String(),
				"variant_id":     call.resolution.VariantID,
				"variant_source": string(call.resolution.Source),
				"old_amount":     price.Amount,
				"new_amount":     amount,
			},
		})
	})
}

// compensate handles a failed local commit after the platform was mutated.
func (s *Service) compensate(ctx context.Context, call syncCall, cause error) error {
	pc := call.pc
	log := logger.WithContext(ctx, s.log).With(
		zap.String("action", call.dir.action),
		zap.String("price_change_id", pc.ID),
	)

	if errors.Is(cause, pcdomain.ErrInvalidStatus) {
		latest, err := s.priceChanges.FindByID(ctx, s.db, pc.ID)
		if err != nil {
			log.Warn("reload after lost transition failed", zap.Error(err))
		}
		// A concurrent call of the same direction already recorded our
		// target status and owns the platform price.
		if latest != nil && latest.Status == call.dir.to {
			log.Warn("lost transition race", zap.String("status", string(latest.Status)))
			return lostRace(latest, call.dir)
		}
		log.Warn("status changed under connector update", zap.Error(cause))
		outcome := s.revert(ctx, call, cause)
		return lostRace(latest, call.dir).WithDetail("compensation", outcome.Status)
	}

	log.Error("local commit failed after connector update", zap.Error(cause))
	outcome := s.revert(ctx, call, cause)

	var failure *pcdomain.Error
	if errors.Is(cause, pricedomain.ErrPriceNotFound) {
		failure = pcdomain.Fail(pcdomain.ErrPriceNotFound, "no price row for sku and currency").
			WithDetail("sku_id", pc.SkuID).
			WithDetail("currency", pc.Currency)
	} else {
		failure = pcdomain.Fail(call.dir.localKind, call.dir.action+" could not be recorded")
	}
	failure = failure.WithCause(cause).WithDetail("compensation", outcome.Status)
	if db.IsSerializationFailure(cause) {
		failure = failure.WithDetail("reason", "serialization_failure").WithRetryable(true)
	}
	return failure
}

// revert pushes the prior amount back to the platform and audits the
// outcome.
func (s *Service) revert(ctx context.Context, call syncCall, cause error) compensation.Outcome {
	pc := call.pc
	metadata := make(map[string]string, len(call.metadata)+1)
	for k, v := range call.metadata {
		metadata[k] = v
	}
	metadata["action"] = call.dir.compensatedAction

	outcome := s.compensation.Revert(ctx, compensation.Request{
		Gateway:     call.gateway,
		VariantID:   call.resolution.VariantID,
		PriorAmount: call.dir.priorAmount(pc, call.result),
		Currency:    pc.Currency,
		Metadata:    metadata,
	})

	explain := outcome.Explain()
	explain["target"] = call.target.String()
	explain["variant_id"] = call.resolution.VariantID
	explain["cause"] = cause.Error()
	s.recordBestEffort(ctx, pc, call.dir.compensatedAction, call.actor, call.correlationID, explain)
	return outcome
}

// lostRace reports the status another writer left behind. When the row
// still reads as our source status the winner is unknown.
func lostRace(latest *pcdomain.PriceChange, dir direction) *pcdomain.Error {
	if latest != nil && latest.Status != dir.from {
		return invalidStatus(latest.Status, dir.action)
	}
	return pcdomain.Fail(pcdomain.ErrInvalidStatus, "status changed concurrently").
		WithDetail("action", dir.action)
}

// recordBestEffort writes an audit row outside any transaction. Failures
// are logged and swallowed.
func (s *Service) recordBestEffort(ctx context.Context, pc *pcdomain.PriceChange, action, actor, correlationID string, explain map[string]any) {
	err := s.auditSvc.Record(ctx, nil, auditdomain.Record{
		ProjectID:     pc.ProjectID,
		Entity:        auditdomain.EntityPriceChange,
		EntityID:      pc.ID,
		Action:        action,
		Actor:         actor,
		CorrelationID: correlationID,
		Explain:       explain,
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("audit record failed",
			zap.String("price_change_id", pc.ID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// resolveTarget picks the platform: the one already recorded on the
// connector status, then context.target, then the configured default.
func (s *Service) resolveTarget(pc *pcdomain.PriceChange) connectordomain.Target {
	if pc.ConnectorStatus.Valid && !pc.ConnectorStatus.Status.Target.IsZero() {
		return pc.ConnectorStatus.Status.Target
	}
	if raw, ok := pc.Context["target"].(string); ok {
		if target, ok := connectordomain.ParseTarget(raw); ok {
			return target
		}
	}
	if s.defaultTarget.IsZero() {
		return connectordomain.TargetShopify
	}
	return s.defaultTarget
}

func connectorFailure(err error, res *connectordomain.UpdatePriceResult) *pcdomain.Error {
	if err != nil {
		failure := pcdomain.Fail(pcdomain.ErrConnectorError, "connector call failed").WithCause(err)
		if isTransient(err) {
			failure = failure.WithRetryable(true)
		}
		return failure
	}
	if res == nil {
		return pcdomain.Fail(pcdomain.ErrConnectorError, "connector returned no result")
	}
	msg := strings.TrimSpace(res.Error)
	if msg == "" {
		msg = "connector reported failure"
	}
	failure := pcdomain.Fail(pcdomain.ErrConnectorError, msg)
	if res.Retryable != nil {
		failure = failure.WithRetryable(*res.Retryable)
	}
	return failure
}

// isTransient reports transport faults worth retrying: timeouts and
// network errors surfaced by the gateway.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

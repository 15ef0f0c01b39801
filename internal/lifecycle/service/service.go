package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/compensation"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/smallbiznis/pricesync/internal/connector"
	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	eventdomain "github.com/smallbiznis/pricesync/internal/event/domain"
	integrationdomain "github.com/smallbiznis/pricesync/internal/integration/domain"
	lifecycledomain "github.com/smallbiznis/pricesync/internal/lifecycle/domain"
	"github.com/smallbiznis/pricesync/internal/observability/logger"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/pricesync/internal/price/domain"
	pcdomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"github.com/smallbiznis/pricesync/internal/variant"
	"github.com/smallbiznis/pricesync/pkg/db/pagination"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config
	Connectors   *config.ConnectorConfigHolder `optional:"true"`
	Metrics      *metrics.Metrics              `optional:"true"`
	Registry     *connector.Registry
	Integrations integrationdomain.Service
	Resolver     *variant.Resolver
	Compensation *compensation.Coordinator
	AuditSvc     auditdomain.Service
	PriceChanges pcdomain.Repository
	Prices       pricedomain.Repository
	Events       eventdomain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	defaultTarget connectordomain.Target
	connectors    *config.ConnectorConfigHolder
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	registry      *connector.Registry
	integrations  integrationdomain.Service
	resolver      *variant.Resolver
	compensation  *compensation.Coordinator
	auditSvc      auditdomain.Service
	priceChanges  pcdomain.Repository
	prices        pricedomain.Repository
	events        eventdomain.Repository
}

func New(p Params) lifecycledomain.Service {
	log := p.Log.Named("lifecycle.service")
	target, ok := connectordomain.ParseTarget(p.Cfg.ConnectorDefaultTarget)
	if !ok {
		if strings.TrimSpace(p.Cfg.ConnectorDefaultTarget) != "" {
			log.Warn("unknown CONNECTOR_DEFAULT_TARGET, using shopify", zap.String("target", p.Cfg.ConnectorDefaultTarget))
		}
		target = connectordomain.TargetShopify
	}
	return &Service{
		db:            p.DB,
		log:           log,
		genID:         p.GenID,
		clock:         p.Clock,
		defaultTarget: target,
		connectors:    p.Connectors,
		metrics:       p.Metrics,
		tracer:        otel.Tracer("pricesync/lifecycle"),
		registry:      p.Registry,
		integrations:  p.Integrations,
		resolver:      p.Resolver,
		compensation:  p.Compensation,
		auditSvc:      p.AuditSvc,
		priceChanges:  p.PriceChanges,
		prices:        p.Prices,
		events:        p.Events,
	}
}

func (s *Service) Approve(ctx context.Context, req lifecycledomain.Request) (*lifecycledomain.PriceChange, error) {
	out, err := s.transition(ctx, req, localTransition{
		action:      lifecycledomain.ActionApproved,
		from:        []pcdomain.Status{pcdomain.StatusPending},
		to:          pcdomain.StatusApproved,
		setApprover: true,
	})
	s.metrics.RecordTransition(ctx, lifecycledomain.ActionApproved, outcomeOf(err))
	return out, err
}

func (s *Service) Reject(ctx context.Context, req lifecycledomain.Request) (*lifecycledomain.PriceChange, error) {
	out, err := s.transition(ctx, req, localTransition{
		action: lifecycledomain.ActionRejected,
		from:   []pcdomain.Status{pcdomain.StatusPending, pcdomain.StatusApproved},
		to:     pcdomain.StatusRejected,
	})
	s.metrics.RecordTransition(ctx, lifecycledomain.ActionRejected, outcomeOf(err))
	return out, err
}

func (s *Service) Apply(ctx context.Context, req lifecycledomain.Request) (*lifecycledomain.PriceChange, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.apply")
	defer span.End()

	out, err := s.sync(ctx, span, req, applyDirection)
	s.finish(ctx, span, lifecycledomain.ActionApply, err)
	return out, err
}

func (s *Service) Rollback(ctx context.Context, req lifecycledomain.Request) (*lifecycledomain.PriceChange, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.rollback")
	defer span.End()

	out, err := s.sync(ctx, span, req, rollbackDirection)
	s.finish(ctx, span, lifecycledomain.ActionRollback, err)
	return out, err
}

func (s *Service) Get(ctx context.Context, projectID, id string) (*lifecycledomain.PriceChange, error) {
	pc, err := s.load(ctx, lifecycledomain.Request{ProjectID: projectID, PriceChangeID: id})
	if err != nil {
		return nil, err
	}
	return lifecycledomain.FromModel(pc), nil
}

func (s *Service) List(ctx context.Context, req lifecycledomain.ListRequest) (lifecycledomain.ListResponse, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return lifecycledomain.ListResponse{}, pcdomain.Fail(pcdomain.ErrProjectRequired, "project is required")
	}

	filter := pcdomain.ListFilter{ProjectID: req.ProjectID, Limit: req.Limit()}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := pcdomain.Status(strings.ToUpper(raw))
		if !validStatus(status) {
			return lifecycledomain.ListResponse{}, pcdomain.Fail(pcdomain.ErrBadRequest, "unknown status filter").WithDetail("status", raw)
		}
		filter.Status = status
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return lifecycledomain.ListResponse{}, pcdomain.Fail(pcdomain.ErrBadRequest, "invalid page token")
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil || strings.TrimSpace(cursor.ID) == "" {
			return lifecycledomain.ListResponse{}, pcdomain.Fail(pcdomain.ErrBadRequest, "invalid page token")
		}
		filter.AfterID = cursor.ID
		filter.AfterCreatedAt = &createdAt
	}

	items, err := s.priceChanges.List(ctx, s.db, filter)
	if err != nil {
		return lifecycledomain.ListResponse{}, pcdomain.Fail(pcdomain.ErrInternal, "list price changes").WithCause(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(pc *pcdomain.PriceChange) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        pc.ID,
			CreatedAt: pc.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}

	out := make([]lifecycledomain.PriceChange, 0, len(items))
	for _, item := range items {
		if dto := lifecycledomain.FromModel(item); dto != nil {
			out = append(out, *dto)
		}
	}
	return lifecycledomain.ListResponse{PageInfo: pageInfo, PriceChanges: out}, nil
}

type localTransition struct {
	action      string
	from        []pcdomain.Status
	to          pcdomain.Status
	setApprover bool
}

// transition runs approve and reject: a status move plus its audit row, no
// connector involvement.
func (s *Service) transition(ctx context.Context, req lifecycledomain.Request, t localTransition) (*lifecycledomain.PriceChange, error) {
	ctx, cid := withCorrelation(ctx, req.CorrelationID)

	pc, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if !statusIn(pc.Status, t.from) {
		return nil, invalidStatus(pc.Status, t.action)
	}

	actor := actorOf(req)
	now := s.clock.Now()
	update := pcdomain.Transition{
		ID:        pc.ID,
		ProjectID: pc.ProjectID,
		From:      t.from,
		To:        t.to,
		UpdatedAt: now,
	}
	if t.setApprover {
		update.ApprovedBy = &actor
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.priceChanges.Transition(ctx, tx, update); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Record{
			ProjectID:     pc.ProjectID,
			Entity:        auditdomain.EntityPriceChange,
			EntityID:      pc.ID,
			Action:        t.action,
			Actor:         actor,
			CorrelationID: cid,
			Explain: map[string]any{
				"from_status": string(pc.Status),
				"to_status":   string(t.to),
			},
		})
	})
	if err != nil {
		if errors.Is(err, pcdomain.ErrInvalidStatus) {
			return nil, invalidStatus(pc.Status, t.action)
		}
		return nil, pcdomain.Fail(pcdomain.ErrInternal, t.action+" failed").WithCause(err)
	}

	logger.WithContext(ctx, s.log).Info("price change transitioned",
		zap.String("price_change_id", pc.ID),
		zap.String("action", t.action),
		zap.String("to_status", string(t.to)),
	)
	return s.reload(ctx, pc.ID)
}

// load fetches a price change and checks it belongs to the caller's project.
func (s *Service) load(ctx context.Context, req lifecycledomain.Request) (*pcdomain.PriceChange, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, pcdomain.Fail(pcdomain.ErrProjectRequired, "project is required")
	}
	id := strings.TrimSpace(req.PriceChangeID)
	if id == "" {
		return nil, pcdomain.Fail(pcdomain.ErrBadRequest, "price change id is required")
	}

	pc, err := s.priceChanges.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, pcdomain.Fail(pcdomain.ErrInternal, "load price change").WithCause(err)
	}
	if pc == nil {
		return nil, pcdomain.Fail(pcdomain.ErrNotFound, "price change not found").WithDetail("id", id)
	}
	if pc.ProjectID != projectID {
		return nil, pcdomain.Fail(pcdomain.ErrForbidden, "price change belongs to another project")
	}
	return pc, nil
}

func (s *Service) reload(ctx context.Context, id string) (*lifecycledomain.PriceChange, error) {
	pc, err := s.priceChanges.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, pcdomain.Fail(pcdomain.ErrInternal, "reload price change").WithCause(err)
	}
	if pc == nil {
		return nil, pcdomain.Fail(pcdomain.ErrNotFound, "price change not found").WithDetail("id", id)
	}
	return lifecycledomain.FromModel(pc), nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, action string, err error) {
	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("lifecycle.outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.RecordTransition(ctx, action, outcome)
}

func withCorrelation(ctx context.Context, requested string) (context.Context, string) {
	ctx = correlation.ContextWithCorrelationID(ctx, requested)
	return correlation.EnsureCorrelationID(ctx)
}

func actorOf(req lifecycledomain.Request) string {
	if actor := strings.TrimSpace(req.Actor); actor != "" {
		return actor
	}
	return "system"
}

func statusIn(status pcdomain.Status, allowed []pcdomain.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

func validStatus(status pcdomain.Status) bool {
	return statusIn(status, []pcdomain.Status{
		pcdomain.StatusPending,
		pcdomain.StatusApproved,
		pcdomain.StatusApplied,
		pcdomain.StatusRejected,
		pcdomain.StatusFailed,
		pcdomain.StatusRolledBack,
	})
}

func invalidStatus(current pcdomain.Status, action string) *pcdomain.Error {
	return pcdomain.Fail(pcdomain.ErrInvalidStatus, "price change is "+string(current)).
		WithDetail("status", string(current)).
		WithDetail("action", action)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := pcdomain.KindOf(err); kind != nil {
		return kind.Error()
	}
	return pcdomain.ErrInternal.Error()
}

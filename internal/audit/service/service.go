package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/audit/masking"
	"github.com/smallbiznis/pricesync/internal/clock"
	obscontext "github.com/smallbiznis/pricesync/internal/observability/context"
	"github.com/smallbiznis/pricesync/pkg/db/pagination"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const actorSystem = "system"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, db *gorm.DB, rec auditdomain.Record) error {
	action := strings.TrimSpace(rec.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	entity := strings.TrimSpace(rec.Entity)
	if entity == "" || strings.TrimSpace(rec.EntityID) == "" {
		return auditdomain.ErrInvalidEntity
	}
	projectID := strings.TrimSpace(rec.ProjectID)
	if projectID == "" {
		projectID = obscontext.ProjectIDFromContext(ctx)
	}
	if projectID == "" {
		return auditdomain.ErrInvalidProject
	}

	actor := strings.TrimSpace(rec.Actor)
	if actor == "" {
		actor = obscontext.ActorIDFromContext(ctx)
	}
	if actor == "" {
		actor = actorSystem
	}

	correlationID := strings.TrimSpace(rec.CorrelationID)
	if correlationID == "" {
		correlationID = correlation.ExtractCorrelationID(ctx)
	}
	if correlationID == "" {
		correlationID = correlation.NewID()
	}

	explain := masking.Sensitive(rec.Explain)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		if explain == nil {
			explain = map[string]any{}
		}
		explain["request_id"] = requestID
	}

	entry := auditdomain.Audit{
		ID:            "aud_" + s.genID.Generate().String(),
		ProjectID:     projectID,
		Entity:        entity,
		EntityID:      strings.TrimSpace(rec.EntityID),
		Action:        action,
		Actor:         actor,
		CorrelationID: correlationID,
		CreatedAt:     s.now(),
	}
	if len(explain) > 0 {
		entry.Explain = datatypes.JSONMap(explain)
	}

	if db == nil {
		db = s.db
	}
	if err := s.repo.Insert(ctx, db, &entry); err != nil {
		s.log.Warn("failed to write audit",
			zap.String("action", action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidProject
	}

	var cursor *auditdomain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil || strings.TrimSpace(decoded.ID) == "" {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.Cursor{ID: decoded.ID, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		ProjectID: projectID,
		Entity:    req.Entity,
		EntityID:  req.EntityID,
		Action:    req.Action,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *auditdomain.Audit) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID,
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > limit {
		items = items[:limit]
	}

	audits := make([]auditdomain.Audit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		audits = append(audits, *item)
	}
	return auditdomain.ListResponse{PageInfo: pageInfo, Audits: audits}, nil
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}

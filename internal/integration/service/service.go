package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricesync/internal/audit/masking"
	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/config"
	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/integration/domain"
	"github.com/smallbiznis/pricesync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	encKey []byte
}

func New(p Params) (domain.Service, error) {
	key, err := deriveKey(p.Cfg.IntegrationConfigSecret)
	if err != nil {
		return nil, err
	}
	log := p.Log.Named("integration.service")
	if len(key) == 0 {
		log.Warn("INTEGRATION_CONFIG_SECRET is empty, integration credentials cannot be read")
	}
	return &Service{
		db:     p.DB,
		log:    log,
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		encKey: key,
	}, nil
}

func (s *Service) Active(ctx context.Context, projectID string, target connectordomain.Target) (*domain.Credentials, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || target.IsZero() {
		return nil, domain.ErrNotConfigured
	}

	in, err := s.repo.FindActive(ctx, s.db, projectID, target.String())
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, domain.ErrNotConfigured
	}

	values, err := openConfig(s.encKey, in.Config)
	if err != nil {
		s.log.Warn("failed to open integration config",
			zap.String("integration_id", in.ID),
			zap.String("platform", in.Platform),
			zap.Error(err),
		)
		return nil, err
	}

	return &domain.Credentials{
		IntegrationID: in.ID,
		ProjectID:     in.ProjectID,
		Target:        target,
		Values:        values,
	}, nil
}

func (s *Service) Connect(ctx context.Context, projectID string, target connectordomain.Target, values map[string]string) (*domain.Integration, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || target.IsZero() {
		return nil, domain.ErrInvalidConfig
	}
	normalized := normalizeValues(values)
	if len(normalized) == 0 {
		return nil, domain.ErrInvalidConfig
	}

	sealed, err := sealConfig(s.encKey, normalized)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	in := &domain.Integration{
		ID:        "int_" + s.genID.Generate().String(),
		ProjectID: projectID,
		Platform:  target.String(),
		IsActive:  true,
		Config:    sealed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Deactivate(ctx, tx, projectID, target.String(), now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, in)
	})
	if db.IsDuplicateKeyErr(err) {
		s.log.Warn("concurrent integration connect",
			zap.String("project_id", projectID),
			zap.String("platform", target.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrConnectConflict, err)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("integration connected",
		zap.String("project_id", projectID),
		zap.String("platform", target.String()),
		zap.Any("config", masking.Values(normalized)),
	)
	return in, nil
}

func normalizeValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

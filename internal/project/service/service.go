package service

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo projectdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo projectdomain.Repository
}

func New(p Params) projectdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("project.service"),
		repo: p.Repo,
	}
}

func (s *Service) Resolve(ctx context.Context, projectSlug, userID string) (*projectdomain.Scope, error) {
	projectSlug = strings.TrimSpace(projectSlug)
	if projectSlug == "" {
		return nil, projectdomain.ErrSlugRequired
	}
	if !slug.IsSlug(projectSlug) {
		return nil, projectdomain.ErrInvalidSlug
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, projectdomain.ErrNotMember
	}

	project, err := s.repo.FindBySlug(ctx, s.db, projectSlug)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}

	member, err := s.repo.FindMember(ctx, s.db, project.ID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		s.log.Debug("caller is not a project member",
			zap.String("project_id", project.ID),
			zap.String("user_id", userID),
		)
		return nil, projectdomain.ErrNotMember
	}
	role, ok := projectdomain.ParseRole(string(member.Role))
	if !ok {
		return nil, projectdomain.ErrNotMember
	}

	return &projectdomain.Scope{
		Project: *project,
		UserID:  userID,
		Role:    role,
	}, nil
}

package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const ObjectPriceChange = "price_change"

const (
	ActionView     = "view"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionApply    = "apply"
	ActionRollback = "rollback"
)

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
	ErrForbidden      = errors.New("forbidden")
)

// Request is one capability check.
type Request struct {
	ProjectID string
	Actor     string
	Role      projectdomain.Role
	Object    string
	ObjectID  string
	Action    string
}

type Service interface {
	Authorize(ctx context.Context, req Request) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Actor) == "" {
		return ErrInvalidActor
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return ErrInvalidProject
	}
	object := strings.TrimSpace(req.Object)
	if object == "" {
		return ErrInvalidObject
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return ErrInvalidAction
	}
	role, ok := projectdomain.ParseRole(string(req.Role))
	if !ok {
		s.auditDenied(ctx, req)
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("project_id", req.ProjectID),
			zap.String("actor", req.Actor),
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, req)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, req Request) {
	if s.auditSvc == nil || strings.TrimSpace(req.ObjectID) == "" {
		return
	}
	_ = s.auditSvc.Record(ctx, nil, auditdomain.Record{
		ProjectID: req.ProjectID,
		Entity:    req.Object,
		EntityID:  req.ObjectID,
		Action:    "authorization.denied",
		Actor:     req.Actor,
		Explain: map[string]any{
			"action": req.Action,
			"role":   string(req.Role),
		},
	})
}

func roleSubject(role projectdomain.Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleSubject(projectdomain.RoleViewer), ObjectPriceChange, ActionView},
		{roleSubject(projectdomain.RoleEditor), ObjectPriceChange, ActionApprove},
		{roleSubject(projectdomain.RoleEditor), ObjectPriceChange, ActionReject},
		{roleSubject(projectdomain.RoleAdmin), ObjectPriceChange, ActionApply},
		{roleSubject(projectdomain.RoleAdmin), ObjectPriceChange, ActionRollback},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Each role inherits the one below it.
	inheritance := [][2]projectdomain.Role{
		{projectdomain.RoleEditor, projectdomain.RoleViewer},
		{projectdomain.RoleAdmin, projectdomain.RoleEditor},
		{projectdomain.RoleOwner, projectdomain.RoleAdmin},
	}
	for _, link := range inheritance {
		if _, err := enforcer.AddGroupingPolicy(roleSubject(link[0]), roleSubject(link[1])); err != nil {
			return err
		}
	}
	return nil
}

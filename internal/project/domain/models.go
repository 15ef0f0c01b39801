package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleRank[r]
	return r, ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

type Project struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TenantID  string    `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	Slug      string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"slug"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Project) TableName() string { return "projects" }

type Member struct {
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Member) TableName() string { return "project_members" }

// Scope is a project resolved for one caller.
type Scope struct {
	Project Project
	UserID  string
	Role    Role
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Project) error
	InsertMember(ctx context.Context, db *gorm.DB, m *Member) error
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Project, error)
	FindMember(ctx context.Context, db *gorm.DB, projectID, userID string) (*Member, error)
}

type Service interface {
	Resolve(ctx context.Context, slug, userID string) (*Scope, error)
}

var (
	ErrSlugRequired = errors.New("project_slug_required")
	ErrInvalidSlug  = errors.New("invalid_project_slug")
	ErrNotFound     = errors.New("project_not_found")
	ErrNotMember    = errors.New("project_membership_required")
)

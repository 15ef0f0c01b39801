package domain

import (
	"context"
	"errors"
	"time"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Integration holds a project's sealed credentials for one platform.
type Integration struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	ProjectID string `gorm:"type:varchar(64);not null;index:idx_integrations_project_platform;uniqueIndex:ux_integrations_active,where:is_active = true"`
	Platform  string `gorm:"type:varchar(32);not null;index:idx_integrations_project_platform;uniqueIndex:ux_integrations_active,where:is_active = true"`
	IsActive  bool   `gorm:"not null;default:false"`
	Config    datatypes.JSON
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Integration) TableName() string { return "integrations" }

// Credentials are the decrypted settings of an active integration.
type Credentials struct {
	IntegrationID string
	ProjectID     string
	Target        connectordomain.Target
	Values        map[string]string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, in *Integration) error
	FindActive(ctx context.Context, db *gorm.DB, projectID, platform string) (*Integration, error)
	Deactivate(ctx context.Context, db *gorm.DB, projectID, platform string, now time.Time) error
}

type Service interface {
	// Active returns ErrNotConfigured when the project has no active
	// integration for target.
	Active(ctx context.Context, projectID string, target connectordomain.Target) (*Credentials, error)
	// Connect replaces the active integration for target.
	Connect(ctx context.Context, projectID string, target connectordomain.Target, values map[string]string) (*Integration, error)
}

var (
	ErrNotConfigured        = errors.New("integration_not_configured")
	ErrEncryptionKeyMissing = errors.New("integration_encryption_key_missing")
	ErrInvalidConfig        = errors.New("invalid_integration_config")
	// ErrConnectConflict means a concurrent Connect activated the same
	// platform first.
	ErrConnectConflict = errors.New("integration_connect_conflict")
)

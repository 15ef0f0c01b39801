package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Kind string

const (
	KindPriceApplied    Kind = "PRICE_APPLIED"
	KindPriceRolledBack Kind = "PRICE_ROLLED_BACK"
)

// Event is an append-only domain event written alongside a price mutation.
type Event struct {
	ID        string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID string            `gorm:"type:varchar(64);not null;index" json:"project_id"`
	Kind      Kind              `gorm:"type:varchar(64);not null;index" json:"kind"`
	Payload   datatypes.JSONMap `json:"payload"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "events" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Event) error
	ListByKind(ctx context.Context, db *gorm.DB, projectID string, kind Kind) ([]*Event, error)
}

package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pc *PriceChange) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*PriceChange, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PriceChange, error)
	// Transition moves a row out of one of the From statuses. It returns
	// ErrInvalidStatus when no row matched.
	Transition(ctx context.Context, db *gorm.DB, t Transition) error
}

type ListFilter struct {
	ProjectID      string
	Status         Status
	Limit          int
	AfterID        string
	AfterCreatedAt *time.Time
}

type Transition struct {
	ID              string
	ProjectID       string
	From            []Status
	To              Status
	ApprovedBy      *string
	AppliedAt       *time.Time
	ConnectorStatus *ConnectorStatus
	UpdatedAt       time.Time
}

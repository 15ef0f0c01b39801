package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/pricesync/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Audit) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Audit, error)
}

// Record describes one audit entry. Actor and CorrelationID fall back to
// the values carried by the context when empty.
type Record struct {
	ProjectID     string
	Entity        string
	EntityID      string
	Action        string
	Actor         string
	Explain       map[string]any
	CorrelationID string
}

type ListRequest struct {
	pagination.Pagination
	ProjectID string
	Entity    string
	EntityID  string
	Action    string
}

type ListResponse struct {
	pagination.PageInfo
	Audits []Audit `json:"audits"`
}

type Service interface {
	// Record writes through db so callers can pass a transaction handle;
	// a nil db uses the service connection.
	Record(ctx context.Context, db *gorm.DB, rec Record) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidProject   = errors.New("invalid_project")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidEntity    = errors.New("invalid_entity")
)

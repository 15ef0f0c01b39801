package domain

import (
	"context"
	"time"

	pricechangedomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"github.com/smallbiznis/pricesync/pkg/db/pagination"
)

const (
	ActionApproved = "approved"
	ActionRejected = "rejected"
	ActionApply    = "apply"
	ActionRollback = "rollback"

	ActionApplyFailed         = "apply_failed"
	ActionRollbackFailed      = "rollback_failed"
	ActionApplyCompensated    = "apply_compensated"
	ActionRollbackCompensated = "rollback_compensated"
)

// Request identifies one lifecycle call. ProjectID is the already resolved
// project of the caller.
type Request struct {
	ProjectID     string
	PriceChangeID string
	Actor         string
	CorrelationID string
}

type ListRequest struct {
	pagination.Pagination
	ProjectID string
	Status    string
}

type ListResponse struct {
	pagination.PageInfo
	PriceChanges []PriceChange `json:"price_changes"`
}

type Service interface {
	Approve(ctx context.Context, req Request) (*PriceChange, error)
	Reject(ctx context.Context, req Request) (*PriceChange, error)
	Apply(ctx context.Context, req Request) (*PriceChange, error)
	Rollback(ctx context.Context, req Request) (*PriceChange, error)
	Get(ctx context.Context, projectID, id string) (*PriceChange, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

// PriceChange is the API view of a price change.
type PriceChange struct {
	ID                string                          `json:"id"`
	TenantID          string                          `json:"tenant_id"`
	ProjectID         string                          `json:"project_id"`
	SkuID             string                          `json:"sku_id"`
	FromAmount        int64                           `json:"from_amount"`
	ToAmount          int64                           `json:"to_amount"`
	Currency          string                          `json:"currency"`
	Source            string                          `json:"source"`
	Context           map[string]any                  `json:"context,omitempty"`
	PolicyResult      *pricechangedomain.PolicyResult `json:"policy_result"`
	Status            string                          `json:"status"`
	ExternalVariantID *string                         `json:"external_variant_id,omitempty"`
	ApprovedBy        *string                         `json:"approved_by,omitempty"`
	AppliedAt         *time.Time                      `json:"applied_at,omitempty"`
	ConnectorStatus   *ConnectorStatus                `json:"connector_status"`
	CreatedAt         time.Time                       `json:"created_at"`
	UpdatedAt         time.Time                       `json:"updated_at"`
}

type ConnectorStatus struct {
	Target       string         `json:"target"`
	State        string         `json:"state"`
	ErrorMessage string         `json:"error_message,omitempty"`
	VariantID    string         `json:"variant_id,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

func FromModel(pc *pricechangedomain.PriceChange) *PriceChange {
	if pc == nil {
		return nil
	}
	out := &PriceChange{
		ID:                pc.ID,
		TenantID:          pc.TenantID,
		ProjectID:         pc.ProjectID,
		SkuID:             pc.SkuID,
		FromAmount:        pc.FromAmount,
		ToAmount:          pc.ToAmount,
		Currency:          pc.Currency,
		Source:            pc.Source,
		Status:            string(pc.Status),
		ExternalVariantID: pc.ExternalVariantID,
		ApprovedBy:        pc.ApprovedBy,
		AppliedAt:         pc.AppliedAt,
		CreatedAt:         pc.CreatedAt,
		UpdatedAt:         pc.UpdatedAt,
	}
	if len(pc.Context) > 0 {
		out.Context = map[string]any(pc.Context)
	}
	if pc.PolicyResult.Valid {
		result := pc.PolicyResult.Result
		out.PolicyResult = &result
	}
	if pc.ConnectorStatus.Valid {
		cs := pc.ConnectorStatus.Status
		out.ConnectorStatus = &ConnectorStatus{
			Target:       cs.Target.String(),
			State:        string(cs.State),
			ErrorMessage: cs.ErrorMessage,
			VariantID:    cs.VariantID,
			ExternalID:   cs.ExternalID,
			Metadata:     cs.Metadata,
			UpdatedAt:    cs.UpdatedAt,
		}
	}
	return out
}

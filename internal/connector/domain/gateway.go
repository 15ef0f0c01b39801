package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/pricesync/internal/config"
)

// UpdatePriceRequest asks a platform to set the price of one variant.
// Price is in minor currency units.
type UpdatePriceRequest struct {
	ExternalID string
	Price      int64
	Currency   string
	Metadata   map[string]string
}

// UpdatePriceResult is the structured outcome of an UpdatePrice call.
// Business failures are reported with Success=false, never as an error.
type UpdatePriceResult struct {
	ExternalID string
	Success    bool
	OldPrice   *int64
	NewPrice   *int64
	Currency   string
	UpdatedAt  time.Time
	Error      string
	Retryable  *bool
}

// IsRetryable is false when the platform did not say.
func (r *UpdatePriceResult) IsRetryable() bool {
	return r != nil && r.Retryable != nil && *r.Retryable
}

// Failure builds an unsuccessful result.
func Failure(req UpdatePriceRequest, message string, retryable bool, at time.Time) *UpdatePriceResult {
	return &UpdatePriceResult{
		ExternalID: req.ExternalID,
		Success:    false,
		Currency:   req.Currency,
		UpdatedAt:  at,
		Error:      message,
		Retryable:  &retryable,
	}
}

// Gateway updates prices on one external platform.
type Gateway interface {
	Target() Target
	UpdatePrice(ctx context.Context, req UpdatePriceRequest) (*UpdatePriceResult, error)
}

// Config is what a Factory needs to build a Gateway for one project.
type Config struct {
	ProjectID     string
	IntegrationID string
	Credentials   map[string]string
	Settings      config.ConnectorSettings
}

type Factory interface {
	Target() Target
	NewGateway(cfg Config) (Gateway, error)
}

// Middleware decorates a freshly built Gateway.
type Middleware func(next Gateway, cfg Config) Gateway

var (
	ErrTargetNotSupported = errors.New("connector_target_not_supported")
	ErrInvalidCredentials = errors.New("connector_invalid_credentials")
	ErrInvalidRequest     = errors.New("connector_invalid_request")
)

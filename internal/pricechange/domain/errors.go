package domain

import (
	"errors"
	"strings"
)

var (
	ErrProjectRequired      = errors.New("project_required")
	ErrBadRequest           = errors.New("bad_request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not_found")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrPolicyViolation      = errors.New("policy_violation")
	ErrMissingVariant       = errors.New("missing_variant")
	ErrIntegrationMissing   = errors.New("integration_missing")
	ErrConnectorUnavailable = errors.New("connector_unavailable")
	ErrConnectorError       = errors.New("connector_error")
	ErrPriceNotFound        = errors.New("price_not_found")
	ErrRollbackFailed       = errors.New("rollback_failed")
	ErrInternal             = errors.New("internal_error")
)

// Error is a lifecycle failure. Kind is one of the sentinels above and is
// what callers match with errors.Is; Cause keeps the underlying failure.
type Error struct {
	Kind      error
	Message   string
	Details   map[string]any
	Retryable *bool
	Cause     error
}

func Fail(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString(ErrInternal.Error())
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = &retryable
	e.WithDetail("retryable", retryable)
	return e
}

// KindOf returns the sentinel carried by err, or nil when err is not a
// lifecycle error.
func KindOf(err error) error {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

var kinds = []error{
	ErrProjectRequired,
	ErrBadRequest,
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidStatus,
	ErrPolicyViolation,
	ErrMissingVariant,
	ErrIntegrationMissing,
	ErrConnectorUnavailable,
	ErrConnectorError,
	ErrPriceNotFound,
	ErrRollbackFailed,
	ErrInternal,
}

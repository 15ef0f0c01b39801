package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Prefix marks correlation ids minted by this service.
const Prefix = "corr_"

// HeaderName carries a caller supplied correlation id.
const HeaderName = "X-Correlation-Id"

type correlationKey struct{}

// NewID returns a fresh prefixed correlation id.
func NewID() string {
	return Prefix + strings.ToLower(ulid.Make().String())
}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = NewID()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// Package variant locates the external platform id of the SKU a price
// change targets.
package variant

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	connectordomain "github.com/smallbiznis/pricesync/internal/connector/domain"
	pricechangedomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	"go.uber.org/zap"
)

type Source string

const (
	SourceRecord          Source = "record"
	SourceContext         Source = "context"
	SourceConnectorStatus Source = "connector_status"
	SourceSkuAttributes   Source = "sku_attributes"
)

const metadataVariantID = "variantId"

// SkuLookup reads the platform variant id stored on the SKU itself.
type SkuLookup interface {
	PlatformVariantID(ctx context.Context, skuID string, target connectordomain.Target) (string, error)
}

type Resolution struct {
	VariantID string
	Source    Source
}

type Resolver struct {
	skus SkuLookup
	log  *zap.Logger
}

func NewResolver(skus SkuLookup, log *zap.Logger) *Resolver {
	return &Resolver{skus: skus, log: log.Named("variant.resolver")}
}

// Resolve walks the sources in precedence order: the record's own field,
// the context keys, connector status metadata, then the SKU attributes.
func (r *Resolver) Resolve(ctx context.Context, pc *pricechangedomain.PriceChange, target connectordomain.Target) (Resolution, bool) {
	if pc == nil {
		return Resolution{}, false
	}
	if pc.ExternalVariantID != nil {
		if id := strings.TrimSpace(*pc.ExternalVariantID); id != "" {
			return Resolution{VariantID: id, Source: SourceRecord}, true
		}
	}
	for _, key := range ContextKeys(target) {
		if id := stringValue(pc.Context[key]); id != "" {
			return Resolution{VariantID: id, Source: SourceContext}, true
		}
	}
	if pc.ConnectorStatus.Valid {
		if id := stringValue(pc.ConnectorStatus.Status.Metadata[metadataVariantID]); id != "" {
			return Resolution{VariantID: id, Source: SourceConnectorStatus}, true
		}
	}
	if r.skus != nil && pc.SkuID != "" && !target.IsZero() {
		id, err := r.skus.PlatformVariantID(ctx, pc.SkuID, target)
		if err != nil {
			r.log.Warn("sku variant lookup failed",
				zap.String("sku_id", pc.SkuID),
				zap.String("target", target.String()),
				zap.Error(err),
			)
		} else if id = strings.TrimSpace(id); id != "" {
			return Resolution{VariantID: id, Source: SourceSkuAttributes}, true
		}
	}
	return Resolution{}, false
}

// ResolveForRollback prefers the variant recorded when the change was
// applied, since that is the id that was actually mutated.
func (r *Resolver) ResolveForRollback(ctx context.Context, pc *pricechangedomain.PriceChange, target connectordomain.Target) (Resolution, bool) {
	if pc != nil && pc.ConnectorStatus.Valid {
		if id := strings.TrimSpace(pc.ConnectorStatus.Status.VariantID); id != "" {
			return Resolution{VariantID: id, Source: SourceConnectorStatus}, true
		}
	}
	return r.Resolve(ctx, pc, target)
}

// ContextKeys lists the context keys that may carry a variant id, the
// platform specific one first.
func ContextKeys(target connectordomain.Target) []string {
	keys := make([]string, 0, 4)
	if k := target.ContextVariantKey(); k != "" {
		keys = append(keys, k)
	}
	return append(keys, "variantId", "connectorVariantId", "externalVariantId")
}

func stringValue(v any) string {
	switch cast := v.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	default:
		return ""
	}
}

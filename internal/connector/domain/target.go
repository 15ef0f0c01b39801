package domain

import (
	"fmt"
	"strings"
)

// Target identifies the external commerce platform a price change syncs to.
type Target struct {
	name string
}

var (
	TargetShopify = Target{name: "shopify"}
	TargetAmazon  = Target{name: "amazon"}
)

var knownTargets = map[string]Target{
	TargetShopify.name: TargetShopify,
	TargetAmazon.name:  TargetAmazon,
}

// ParseTarget maps a free-form hint onto a known target.
func ParseTarget(raw string) (Target, bool) {
	t, ok := knownTargets[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// Targets lists every platform the engine knows how to address.
func Targets() []Target {
	return []Target{TargetShopify, TargetAmazon}
}

func (t Target) String() string { return t.name }

func (t Target) IsZero() bool { return t.name == "" }

// ContextVariantKey is the price change context key that carries this
// platform's variant id, e.g. "shopifyVariantId".
func (t Target) ContextVariantKey() string {
	if t.IsZero() {
		return ""
	}
	return t.name + "VariantId"
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

func (t *Target) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*t = Target{}
		return nil
	}
	parsed, ok := ParseTarget(string(b))
	if !ok {
		return fmt.Errorf("unknown connector target %q", string(b))
	}
	*t = parsed
	return nil
}

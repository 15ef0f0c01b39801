package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	got, ok := ParseTarget(" Shopify ")
	assert.True(t, ok)
	assert.Equal(t, TargetShopify, got)

	_, ok = ParseTarget("etsy")
	assert.False(t, ok)
	assert.Equal(t, "shopifyVariantId", TargetShopify.ContextVariantKey())
	assert.Equal(t, "", Target{}.ContextVariantKey())
}

func TestTargetJSON(t *testing.T) {
	type holder struct {
		Target Target `json:"target"`
	}
	raw, err := json.Marshal(holder{Target: TargetAmazon})
	require.NoError(t, err)
	assert.JSONEq(t, `{"target":"amazon"}`, string(raw))

	var h holder
	require.NoError(t, json.Unmarshal([]byte(`{"target":"SHOPIFY"}`), &h))
	assert.Equal(t, TargetShopify, h.Target)

	assert.Error(t, json.Unmarshal([]byte(`{"target":"etsy"}`), &h))
}

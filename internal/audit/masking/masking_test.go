package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecret(t *testing.T) {
	assert.Equal(t, "", Secret("  "))
	assert.Equal(t, "shpat_****", Secret("shpat_abc"))
	assert.Equal(t, "shpat_****7890", Secret("shpat_1234567890"))
	assert.Equal(t, "****wxyz", Secret("abcdefwxyz"))
	assert.Equal(t, "****ing_", Secret("trailing_"))
}

func TestValuesMasksEveryEntry(t *testing.T) {
	out := Values(map[string]string{"shop": "demo-store", "access_token": "shpat_1234567890"})
	assert.Equal(t, "****tore", out["shop"])
	assert.Equal(t, "shpat_****7890", out["access_token"])
	assert.Nil(t, Values(nil))
}

func TestSensitiveOnlyTouchesCredentialKeys(t *testing.T) {
	in := map[string]any{
		"target":       "shopify",
		"access_token": "shpat_1234567890",
		"nested": map[string]any{
			"client_secret": "whsec_abcdefgh",
			"shop":          "demo",
		},
		"api_keys": []any{"key_abcdefgh"},
	}

	out := Sensitive(in)

	assert.Equal(t, "shopify", out["target"])
	assert.Equal(t, "shpat_****7890", out["access_token"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, "whsec_****efgh", nested["client_secret"])
	assert.Equal(t, "demo", nested["shop"])
	assert.Equal(t, []any{"key_****efgh"}, out["api_keys"])
	assert.Equal(t, "shpat_1234567890", in["access_token"], "input must not be mutated")
}

func TestSensitiveEmpty(t *testing.T) {
	assert.Nil(t, Sensitive(nil))
}

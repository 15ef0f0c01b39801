// Package masking redacts platform credentials before they reach audit rows
// or logs. A masked value keeps its vendor prefix ("shpat_") and last four
// characters so operators can still tell tokens apart.
package masking

import "strings"

const redacted = "****"

var credentialHints = []string{"token", "secret", "password", "api_key", "apikey", "authorization", "credential"}

func Secret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	prefix, body := "", value
	if i := strings.LastIndexByte(value, '_'); i >= 0 && i < len(value)-1 {
		prefix, body = value[:i+1], value[i+1:]
	}
	if len(body) <= 4 {
		return prefix + redacted
	}
	return prefix + redacted + body[len(body)-4:]
}

// Values masks every entry of a flat credential map.
func Values(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = Secret(v)
	}
	return out
}

// Sensitive copies in, masking only values stored under credential-like keys.
// Nested maps are walked; the input is never mutated.
func Sensitive(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if IsCredentialKey(k) {
			out[k] = redact(v)
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Sensitive(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func IsCredentialKey(key string) bool {
	key = strings.ToLower(key)
	for _, hint := range credentialHints {
		if strings.Contains(key, hint) {
			return true
		}
	}
	return false
}

func redact(v any) any {
	switch t := v.(type) {
	case string:
		return Secret(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, nested := range t {
			out[k] = redact(nested)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redact(item)
		}
		return out
	default:
		return v
	}
}

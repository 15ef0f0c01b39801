package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

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

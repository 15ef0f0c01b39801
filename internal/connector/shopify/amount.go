package shopify

import (
	"fmt"
	"strconv"
	"strings"
)

var zeroDecimal = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "ISK": {}, "JPY": {}, "KMF": {}, "KRW": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var threeDecimal = map[string]struct{}{
	"BHD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {},
}

func exponent(currency string) int {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimal[currency]; ok {
		return 0
	}
	if _, ok := threeDecimal[currency]; ok {
		return 3
	}
	return 2
}

// formatAmount renders minor units as the decimal string the Admin API takes.
func formatAmount(minor int64, currency string) string {
	exp := exponent(currency)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if exp == 0 {
		return sign + strconv.FormatInt(minor, 10)
	}
	digits := fmt.Sprintf("%0*d", exp+1, minor)
	return sign + digits[:len(digits)-exp] + "." + digits[len(digits)-exp:]
}

// parseAmount converts a decimal string back to minor units without going
// through float64.
func parseAmount(raw, currency string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}
	exp := exponent(currency)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > exp {
		if strings.Trim(frac[exp:], "0") != "" {
			return 0, fmt.Errorf("amount %q has more precision than %s allows", raw, currency)
		}
		frac = frac[:exp]
	}
	frac += strings.Repeat("0", exp-len(frac))

	v, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

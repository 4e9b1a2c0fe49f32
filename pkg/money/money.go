package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse is the canonical reader for the backend's decimal-string fields
// (prices, quantities, discounts, balances). Unparseable or empty input
// yields exactly zero; callers never see a parse error for display math.
func Parse(value string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// ParseAny accepts values that may arrive either as decimal strings or as
// already-numeric JSON values. Numeric input passes through unchanged.
func ParseAny(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case string:
		return Parse(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return Parse(fmt.Sprint(v))
	}
}

// String serializes a decimal back into the wire convention used by the
// backend: plain fixed-point, two fractional digits for money amounts.
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Format renders a display amount with a currency symbol.
func Format(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

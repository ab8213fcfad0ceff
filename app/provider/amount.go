package provider

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"UGX": {},
	"RWF": {},
	"XOF": {},
	"XAF": {},
	"JPY": {},
	"KRW": {},
}

func CurrencyExponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// FormatAmount renders a smallest-unit amount in the given provider unit.
func FormatAmount(minor int64, currency string, unit AmountUnit) string {
	exp := CurrencyExponent(currency)
	switch unit {
	case UnitMajor:
		return decimal.New(minor, -exp).StringFixed(exp)
	case UnitWhole:
		whole := decimal.New(minor, -exp).Floor()
		if minor > 0 && whole.IsZero() {
			whole = decimal.NewFromInt(1)
		}
		return whole.String()
	default:
		return decimal.NewFromInt(minor).String()
	}
}

// ParseAmount converts a provider-unit amount back to the smallest unit.
func ParseAmount(raw string, currency string, unit AmountUnit) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if unit == UnitMinor {
		return d.Round(0).IntPart(), nil
	}
	return d.Shift(CurrencyExponent(currency)).Round(0).IntPart(), nil
}

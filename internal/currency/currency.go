package currency

import (
	"math"
	"strings"
)

// zeroDecimalCurrencies have no fractional minor unit on the wire: the major
// amount is the wire amount. Everything else multiplies by 100.
var zeroDecimalCurrencies = map[string]struct{}{
	"jpy": {},
	"krw": {},
	"clp": {},
	"pyg": {},
	"vnd": {},
}

// ToMinorUnits converts a major-unit amount to the integer wire amount the
// payment provider expects. Callers validate the amount first: negative or
// non-finite input is a contract violation.
func ToMinorUnits(amount float64, currencyCode string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currencyCode)]; ok {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts a wire amount back to major units for display.
func FromMinorUnits(minor int64, currencyCode string) float64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currencyCode)]; ok {
		return float64(minor)
	}
	return float64(minor) / 100
}

// IsZeroDecimal reports whether the currency has no fractional unit.
func IsZeroDecimal(currencyCode string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(currencyCode)]
	return ok
}

// Normalize lowercases a currency code the way providers want it on the wire,
// defaulting to usd when empty.
func Normalize(currencyCode string) string {
	if currencyCode == "" {
		return "usd"
	}
	return strings.ToLower(currencyCode)
}

package shoppinglist

import (
	"regexp"
	"strconv"
)

var quantityRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// ParseQuantity extracts the first contiguous decimal numeral from a
// free-text amount string ("1.5 lb" -> 1.5, "3 tbsp" -> 3). When no numeral
// is present it returns 1 so aggregation always has a usable magnitude; this
// is a deliberate approximation, not an error. No unit conversion happens
// here; units travel as display text only.
func ParseQuantity(amount string) float64 {
	match := quantityRe.FindString(amount)
	if match == "" {
		return 1
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 1
	}
	return value
}

package shoppinglist

import "math"

// ComputeTotals derives total cost and estimated savings from scratch over
// a full item sequence. The list store maintains the same figures
// incrementally during removals; both paths must agree for any given final
// item set, which the tests assert as a property.
func ComputeTotals(items []Item) (totalCost, estimatedSavings float64) {
	var cost, savings float64
	for _, it := range items {
		cost += it.Price
		savings += it.savingsContribution()
	}
	return round2(clampMoney(cost)), round2(clampMoney(savings))
}

// round2 rounds a currency amount to two decimals. Intermediate sums keep
// full precision; rounding only happens at the output boundary.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampMoney(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

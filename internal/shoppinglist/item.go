package shoppinglist

import "time"

// PromotionInfo carries the promotion-only fields of a shopping list item.
// It is present exactly when the item was matched against the catalog, so
// the promoted/non-promoted split is an explicit tag rather than a guess
// from optional fields.
type PromotionInfo struct {
	UnitPrice           float64 `json:"unit_price"`
	Unit                string  `json:"unit"`
	Store               string  `json:"store"`
	OriginalPrice       float64 `json:"original_price"`
	Discount            string  `json:"discount"`
	RecipesUsing        int     `json:"recipes_using"`
	TotalQuantityNeeded float64 `json:"total_quantity_needed"`
	SuggestedQuantity   int     `json:"suggested_quantity"`
}

// Item is one line of a shopping list. ID is stable and unique within a
// list, which makes removal and reordering idempotent across re-renders.
type Item struct {
	ID          string         `json:"id"`
	Item        string         `json:"item"`
	Amount      string         `json:"amount"`
	OnSale      bool           `json:"on_sale"`
	IsPromotion bool           `json:"is_promotion"`
	Price       float64        `json:"price"`
	Promotion   *PromotionInfo `json:"promotion,omitempty"`
}

// savingsContribution is what the item adds to the list's estimated
// savings: the per-unit discount times the number of recipes using the
// promotion. Non-promoted items contribute nothing.
func (it Item) savingsContribution() float64 {
	if it.Promotion == nil {
		return 0
	}
	p := it.Promotion
	if p.OriginalPrice <= 0 || p.UnitPrice <= 0 {
		return 0
	}
	delta := (p.OriginalPrice - p.UnitPrice) * float64(p.RecipesUsing)
	if delta < 0 {
		return 0
	}
	return delta
}

// Result is a derived shopping list with its totals.
type Result struct {
	ShoppingList     []Item    `json:"shopping_list"`
	TotalCost        float64   `json:"total_cost"`
	EstimatedSavings float64   `json:"estimated_savings"`
	CreatedAt        time.Time `json:"created_at"`
}

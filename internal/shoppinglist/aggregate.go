package shoppinglist

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"lazyrecipes/internal/promo"
	"lazyrecipes/internal/recipe"
)

// ErrNoRecipesSelected is returned when aggregation is invoked with an
// empty recipe selection. This is a caller precondition failure, distinct
// from a selection with no catalog overlap (which is valid and yields an
// all-fallback list).
var ErrNoRecipesSelected = errors.New("no recipes selected")

// Options tunes aggregation. FallbackUnitPrice prices ingredients with no
// catalog match; zero means the default of 2.99.
type Options struct {
	FallbackUnitPrice float64
}

const defaultFallbackUnitPrice = 2.99

type promotedGroup struct {
	promo        promo.Promotion
	recipesUsing int
	quantity     float64
	onSale       bool
}

type otherGroup struct {
	item        string
	firstAmount string
	count       int
}

// Aggregate merges ingredient usage across the selected recipes into one
// priced shopping list. An occurrence lands in the promoted bucket only
// when its recipe flags it on sale AND the live catalog has a match; a
// stale on-sale flag with no catalog entry falls through to the fallback
// bucket, favoring the catalog over the recipe's claim.
func Aggregate(recipes []recipe.Recipe, catalog *promo.Catalog, opts Options) (*Result, error) {
	if len(recipes) == 0 {
		return nil, ErrNoRecipesSelected
	}

	fallback := opts.FallbackUnitPrice
	if fallback <= 0 {
		fallback = defaultFallbackUnitPrice
	}

	promoted := make(map[string]*promotedGroup)
	var promotedOrder []string
	other := make(map[string]*otherGroup)
	var otherOrder []string

	for _, rec := range recipes {
		for _, ing := range rec.Ingredients {
			if p, ok := catalog.Match(ing.Item); ok && ing.OnSale {
				key := strings.ToLower(strings.TrimSpace(p.Item))
				group, exists := promoted[key]
				if !exists {
					group = &promotedGroup{promo: *p, onSale: true}
					promoted[key] = group
					promotedOrder = append(promotedOrder, key)
				}
				group.recipesUsing++
				group.quantity += ParseQuantity(ing.Amount)
				continue
			}

			key := strings.ToLower(strings.TrimSpace(ing.Item))
			group, exists := other[key]
			if !exists {
				group = &otherGroup{item: ing.Item, firstAmount: ing.Amount}
				other[key] = group
				otherOrder = append(otherOrder, key)
			}
			group.count++
		}
	}

	items := make([]Item, 0, len(promotedOrder)+len(otherOrder))

	for i, key := range promotedOrder {
		g := promoted[key]
		suggested := int(math.Ceil(g.quantity))
		if suggested < 1 {
			suggested = 1
		}
		items = append(items, Item{
			ID:          itemID("promo", i, key),
			Item:        g.promo.Item,
			Amount:      fmt.Sprintf("~%d %s", suggested, g.promo.Unit),
			OnSale:      true,
			IsPromotion: true,
			Price:       round2(g.promo.Price * g.quantity),
			Promotion: &PromotionInfo{
				UnitPrice:           g.promo.Price,
				Unit:                g.promo.Unit,
				Store:               g.promo.Store,
				OriginalPrice:       g.promo.OriginalPrice,
				Discount:            g.promo.Discount,
				RecipesUsing:        g.recipesUsing,
				TotalQuantityNeeded: g.quantity,
				SuggestedQuantity:   suggested,
			},
		})
	}

	for i, key := range otherOrder {
		g := other[key]
		amount := g.firstAmount
		if g.count > 1 {
			amount = fmt.Sprintf("%s (×%d)", g.firstAmount, g.count)
		}
		items = append(items, Item{
			ID:     itemID("item", i, key),
			Item:   g.item,
			Amount: amount,
			Price:  round2(fallback * float64(g.count)),
		})
	}

	totalCost, estimatedSavings := ComputeTotals(items)

	return &Result{
		ShoppingList:     items,
		TotalCost:        totalCost,
		EstimatedSavings: estimatedSavings,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// itemID builds a deterministic identifier from the bucket, the position
// within the bucket, and the slugged lower-cased name, so repeated runs
// over the same selection produce identical IDs.
func itemID(bucket string, pos int, name string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(name, "-"), "-")
	if slug == "" {
		slug = "unnamed"
	}
	return fmt.Sprintf("%s-%d-%s", bucket, pos+1, slug)
}

package promo

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Promotion is a store's time-boxed discounted price for a named item.
// Records come from one scraping session and are read-only afterwards.
type Promotion struct {
	Item          string  `json:"item"`
	Price         float64 `json:"price"`
	Unit          string  `json:"unit"`
	Store         string  `json:"store"`
	Discount      string  `json:"discount"`
	OriginalPrice float64 `json:"original_price"`
}

// Catalog holds the promotions of one scraping session, indexed by
// lower-cased trimmed item name for constant-time lookup.
type Catalog struct {
	promotions []Promotion
	byName     map[string]*Promotion
}

// NewCatalog builds a catalog from a promotion list. Item names are assumed
// unique per store per scrape; later duplicates are dropped.
func NewCatalog(promotions []Promotion) *Catalog {
	c := &Catalog{
		promotions: make([]Promotion, 0, len(promotions)),
		byName:     make(map[string]*Promotion, len(promotions)),
	}
	for _, p := range promotions {
		key := normalizeName(p.Item)
		if key == "" {
			continue
		}
		if _, exists := c.byName[key]; exists {
			log.Warn().Str("item", p.Item).Str("store", p.Store).Msg("Duplicate promotion item dropped")
			continue
		}
		c.promotions = append(c.promotions, p)
		c.byName[key] = &c.promotions[len(c.promotions)-1]
	}
	return c
}

// Match resolves an ingredient name to a promotion, case-insensitively and
// exactly after trimming. A miss is not an error.
func (c *Catalog) Match(name string) (*Promotion, bool) {
	p, ok := c.byName[normalizeName(name)]
	return p, ok
}

// Promotions returns the catalog contents in load order.
func (c *Catalog) Promotions() []Promotion {
	return c.promotions
}

// Len returns the number of promotions in the catalog.
func (c *Catalog) Len() int {
	return len(c.promotions)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

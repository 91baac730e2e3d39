package recipe

import (
	"fmt"
	"sync"
)

// Ingredient is a single recipe ingredient. OnSale records the recipe
// author's belief that the item is currently promoted; it is reconciled
// against the live catalog at aggregation time.
type Ingredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
	OnSale bool   `json:"on_sale"`
}

// Recipe is an immutable recipe record produced by the generator.
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	CookingTime  string       `json:"cooking_time"`
	Servings     int          `json:"servings"`
}

// Cache keeps generated recipes in memory for later selection, keyed by the
// recipe_N identifiers it assigns.
type Cache struct {
	mu      sync.Mutex
	recipes map[string]Recipe
	order   []string
	counter int
}

// NewCache creates an empty recipe cache.
func NewCache() *Cache {
	return &Cache{recipes: make(map[string]Recipe)}
}

// Put assigns identifiers to the given recipes and stores them. The input
// slice is updated in place so callers see the assigned IDs.
func (c *Cache) Put(recipes []Recipe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range recipes {
		c.counter++
		id := fmt.Sprintf("recipe_%d", c.counter)
		recipes[i].ID = id
		c.recipes[id] = recipes[i]
		c.order = append(c.order, id)
	}
}

// Get returns a recipe by ID.
func (c *Cache) Get(id string) (Recipe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.recipes[id]
	return r, ok
}

// Select resolves a set of recipe IDs. An unknown ID fails the whole
// selection so the caller can report exactly which recipe is missing.
func (c *Cache) Select(ids []string) ([]Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected := make([]Recipe, 0, len(ids))
	for _, id := range ids {
		r, ok := c.recipes[id]
		if !ok {
			return nil, fmt.Errorf("recipe %s not found", id)
		}
		selected = append(selected, r)
	}
	return selected, nil
}

// List returns all cached recipes in generation order.
func (c *Cache) List() []Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Recipe, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.recipes[id])
	}
	return out
}

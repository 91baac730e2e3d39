package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"lazyrecipes/internal/llm"
	"lazyrecipes/internal/promo"
)

//go:embed generator_prompt.md
var generatorPrompt string

// Prompts stay manageable by capping how many promotions are listed.
const maxPromotionsInPrompt = 30

// Preferences are the user's recipe generation preferences.
type Preferences struct {
	Dietary  string `json:"dietary"`
	Servings int    `json:"servings"`
}

// Generator produces Recipe records from the current promotion catalog
// using a text generation model.
type Generator struct {
	textGen llm.TextGenerator
	cache   *Cache
}

// NewGenerator creates a Generator that stores its output in cache.
func NewGenerator(textGen llm.TextGenerator, cache *Cache) *Generator {
	return &Generator{textGen: textGen, cache: cache}
}

// Generate asks the model for numRecipes recipes built around the given
// promotions, assigns IDs, and caches the results for later selection.
func (g *Generator) Generate(ctx context.Context, catalog *promo.Catalog, numRecipes int, prefs Preferences) ([]Recipe, llm.CallMeta, error) {
	if catalog.Len() == 0 {
		return nil, llm.CallMeta{}, fmt.Errorf("no promotions available")
	}
	if numRecipes <= 0 {
		numRecipes = 5
	}
	if prefs.Servings <= 0 {
		prefs.Servings = 4
	}

	start := time.Now()

	prompt, err := buildGeneratorPrompt(catalog.Promotions(), numRecipes, prefs)
	if err != nil {
		return nil, llm.CallMeta{}, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, llm.CallMeta{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := llm.CallMeta{
		Caller:  "RecipeGenerator",
		Usage:   resp.Usage,
		Latency: time.Since(start),
	}

	var recipes []Recipe
	content := stripMarkdownFences(resp.Content)
	if err := json.Unmarshal([]byte(content), &recipes); err != nil {
		return nil, meta, fmt.Errorf("failed to unmarshal LLM response into recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, meta, fmt.Errorf("model returned no recipes")
	}

	g.cache.Put(recipes)
	return recipes, meta, nil
}

func buildGeneratorPrompt(promotions []promo.Promotion, numRecipes int, prefs Preferences) (string, error) {
	if len(promotions) > maxPromotionsInPrompt {
		promotions = promotions[:maxPromotionsInPrompt]
	}

	var list strings.Builder
	for _, p := range promotions {
		fmt.Fprintf(&list, "- %s: $%.2f/%s (%s) at %s\n", p.Item, p.Price, p.Unit, p.Discount, p.Store)
	}

	tmpl, err := template.New("generator").Parse(generatorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		NumRecipes    int
		Servings      int
		Dietary       string
		PromotionList string
	}{
		NumRecipes:    numRecipes,
		Servings:      prefs.Servings,
		Dietary:       prefs.Dietary,
		PromotionList: strings.TrimRight(list.String(), "\n"),
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// stripMarkdownFences removes a ```json ... ``` wrapper when the model
// ignores the raw-JSON instruction.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}
	return strings.TrimSpace(content)
}

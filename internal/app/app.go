// Package app wires the promotion catalog, recipe generation, and per
// session shopping lists into one application facade shared by the HTTP
// server, the Telegram bot, and the CLI.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/config"
	"lazyrecipes/internal/flyer"
	"lazyrecipes/internal/llm"
	"lazyrecipes/internal/metrics"
	"lazyrecipes/internal/promo"
	"lazyrecipes/internal/recipe"
	"lazyrecipes/internal/shoppinglist"
	"lazyrecipes/internal/snapshot"
)

// App holds the application's dependencies.
type App struct {
	cfg        *config.Config
	textGen    llm.TextGenerator
	generator  *recipe.Generator
	recipes    *recipe.Cache
	keeper     *snapshot.Keeper
	metrics    *metrics.Store
	discoverer *flyer.Discoverer

	catMu         sync.RWMutex
	catalog       *promo.Catalog
	catalogLoaded time.Time

	sessMu   sync.Mutex
	sessions map[string]*session
}

type session struct {
	store     *shoppinglist.ListStore
	persister *snapshot.SessionPersister
}

// NewApp creates and initializes a new App instance. metricsStore may be
// nil when token accounting is not wanted (one-shot CLI runs).
func NewApp(cfg *config.Config, textGen llm.TextGenerator, keeper *snapshot.Keeper, metricsStore *metrics.Store) *App {
	cache := recipe.NewCache()
	return &App{
		cfg:        cfg,
		textGen:    textGen,
		generator:  recipe.NewGenerator(textGen, cache),
		recipes:    cache,
		keeper:     keeper,
		metrics:    metricsStore,
		discoverer: flyer.NewDiscoverer(cfg.FlyerIndexURL),
		catalog:    promo.NewCatalog(nil),
		sessions:   make(map[string]*session),
	}
}

// ReloadPromotions reads the promotion result files and swaps in the new
// catalog. Sessions built against the old catalog keep their lists; only
// new aggregations see the update.
func (a *App) ReloadPromotions() error {
	catalog, err := promo.LoadDir(a.cfg.PromotionsDir)
	if err != nil {
		return fmt.Errorf("failed to load promotions: %w", err)
	}

	a.catMu.Lock()
	a.catalog = catalog
	a.catalogLoaded = time.Now().UTC()
	a.catMu.Unlock()

	log.Info().Int("promotions", catalog.Len()).Str("dir", a.cfg.PromotionsDir).Msg("Promotion catalog loaded")
	return nil
}

// Catalog returns the current promotion catalog.
func (a *App) Catalog() *promo.Catalog {
	a.catMu.RLock()
	defer a.catMu.RUnlock()
	return a.catalog
}

// CatalogLoadedAt reports when the catalog was last (re)loaded. Zero when
// no load has happened yet.
func (a *App) CatalogLoadedAt() time.Time {
	a.catMu.RLock()
	defer a.catMu.RUnlock()
	return a.catalogLoaded
}

// GenerateRecipes produces recipes from the current catalog and caches
// them for selection.
func (a *App) GenerateRecipes(ctx context.Context, numRecipes int, prefs recipe.Preferences) ([]recipe.Recipe, error) {
	recipes, meta, err := a.generator.Generate(ctx, a.Catalog(), numRecipes, prefs)
	if a.metrics != nil {
		if recErr := a.metrics.RecordMeta(meta); recErr != nil {
			log.Warn().Err(recErr).Msg("Failed to record generation metrics")
		}
	}
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

// Recipes lists all generated recipes in generation order.
func (a *App) Recipes() []recipe.Recipe {
	return a.recipes.List()
}

// Recipe returns a single cached recipe.
func (a *App) Recipe(id string) (recipe.Recipe, bool) {
	return a.recipes.Get(id)
}

// BuildShoppingList aggregates the selected recipes into a fresh shopping
// list for the session, replacing any existing list, and persists the
// initial state.
func (a *App) BuildShoppingList(ctx context.Context, sessionKey string, recipeIDs []string) (shoppinglist.Result, error) {
	selected, err := a.recipes.Select(recipeIDs)
	if err != nil {
		return shoppinglist.Result{}, err
	}

	res, err := shoppinglist.Aggregate(selected, a.Catalog(), shoppinglist.Options{
		FallbackUnitPrice: a.cfg.FallbackUnitPrice,
	})
	if err != nil {
		return shoppinglist.Result{}, err
	}

	sess := a.bindSession(sessionKey, *res)
	sess.persister.Persist(*res)
	return sess.store.Result(), nil
}

// ShoppingList returns the session's list store, rehydrating it from a
// persisted snapshot when the process has not seen the session yet. The
// second return is false when no list exists.
func (a *App) ShoppingList(ctx context.Context, sessionKey string) (*shoppinglist.ListStore, bool) {
	a.sessMu.Lock()
	if sess, ok := a.sessions[sessionKey]; ok {
		a.sessMu.Unlock()
		return sess.store, true
	}
	a.sessMu.Unlock()

	res := a.keeper.Open(ctx, sessionKey)
	if len(res.ShoppingList) == 0 && res.CreatedAt.IsZero() {
		return nil, false
	}
	return a.bindSession(sessionKey, res).store, true
}

// bindSession installs a new list store for the session, dropping any
// pending writes of a replaced one.
func (a *App) bindSession(sessionKey string, res shoppinglist.Result) *session {
	persister := snapshot.NewSessionPersister(a.keeper, sessionKey, a.cfg.SnapshotWriteInterval)
	sess := &session{
		store:     shoppinglist.NewListStore(res, persister),
		persister: persister,
	}

	a.sessMu.Lock()
	old, replaced := a.sessions[sessionKey]
	a.sessions[sessionKey] = sess
	a.sessMu.Unlock()

	if replaced {
		old.persister.Cancel()
	}
	return sess
}

// ResetShoppingList clears the session's list and its persisted snapshot.
func (a *App) ResetShoppingList(ctx context.Context, sessionKey string) {
	a.sessMu.Lock()
	sess, ok := a.sessions[sessionKey]
	delete(a.sessions, sessionKey)
	a.sessMu.Unlock()

	if ok {
		sess.store.Reset()
		return
	}
	if err := a.keeper.Purge(ctx, sessionKey); err != nil {
		log.Warn().Err(err).Str("session", sessionKey).Msg("Failed to purge shopping list snapshot")
	}
}

// DiscoverFlyers fetches the flyer index and returns current grocery
// flyers.
func (a *App) DiscoverFlyers(ctx context.Context) ([]flyer.Flyer, error) {
	return a.discoverer.Discover(ctx)
}

// Close flushes pending snapshot writes and releases the model client.
// Call on shutdown so throttled tail writes are not lost.
func (a *App) Close() {
	a.sessMu.Lock()
	sessions := make([]*session, 0, len(a.sessions))
	for _, sess := range a.sessions {
		sessions = append(sessions, sess)
	}
	a.sessMu.Unlock()

	for _, sess := range sessions {
		sess.persister.Flush()
	}

	if closer, ok := a.textGen.(llm.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close model client")
		}
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/recipe"
	"lazyrecipes/internal/shoppinglist"
)

func (s *Server) handlePromotions(w http.ResponseWriter, r *http.Request) {
	promotions := s.app.Catalog().Promotions()
	respondJSON(w, http.StatusOK, map[string]any{
		"promotions":   promotions,
		"count":        len(promotions),
		"last_updated": s.app.CatalogLoadedAt(),
	})
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := s.app.Recipes()
	respondJSON(w, http.StatusOK, map[string]any{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

type generateRequest struct {
	NumRecipes  int                `json:"num_recipes"`
	Preferences recipe.Preferences `json:"preferences"`
}

func (s *Server) handleGenerateRecipes(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.app.Catalog().Len() == 0 {
		respondError(w, http.StatusBadRequest, "no promotions available; scrape flyers first")
		return
	}

	recipes, err := s.app.GenerateRecipes(r.Context(), req.NumRecipes, req.Preferences)
	if err != nil {
		log.Error().Err(err).Msg("Recipe generation failed")
		respondError(w, http.StatusBadGateway, "recipe generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	flyers, err := s.app.DiscoverFlyers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Flyer discovery failed")
		respondError(w, http.StatusBadGateway, "flyer discovery failed")
		return
	}

	if err := s.app.ReloadPromotions(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload promotions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"flyers":     flyers,
		"promotions": s.app.Catalog().Len(),
	})
}

type buildListRequest struct {
	RecipeIDs []string `json:"recipe_ids"`
}

func (s *Server) handleBuildList(w http.ResponseWriter, r *http.Request) {
	var req buildListRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.app.BuildShoppingList(r.Context(), sessionKey(r.Context()), req.RecipeIDs)
	if err != nil {
		if errors.Is(err, shoppinglist.ErrNoRecipesSelected) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	store, ok := s.app.ShoppingList(r.Context(), sessionKey(r.Context()))
	if !ok {
		respondJSON(w, http.StatusOK, shoppinglist.Result{ShoppingList: []shoppinglist.Item{}})
		return
	}
	respondJSON(w, http.StatusOK, store.Result())
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := s.app.ShoppingList(r.Context(), sessionKey(r.Context()))
	if !ok {
		respondError(w, http.StatusNotFound, "no shopping list for session")
		return
	}

	// Removal is idempotent: an unknown ID is reported, not an error.
	removed := store.Remove(chi.URLParam(r, "id"))
	res := store.Result()
	respondJSON(w, http.StatusOK, map[string]any{
		"removed":           removed,
		"shopping_list":     res.ShoppingList,
		"total_cost":        res.TotalCost,
		"estimated_savings": res.EstimatedSavings,
	})
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, ok := s.app.ShoppingList(r.Context(), sessionKey(r.Context()))
	if !ok {
		respondError(w, http.StatusNotFound, "no shopping list for session")
		return
	}

	if err := store.Reorder(req.IDs); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, store.Result())
}

func (s *Server) handleResetList(w http.ResponseWriter, r *http.Request) {
	s.app.ResetShoppingList(r.Context(), sessionKey(r.Context()))
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

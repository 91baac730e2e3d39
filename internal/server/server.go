// Package server exposes the shopping list engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/app"
	"lazyrecipes/internal/config"
	"lazyrecipes/internal/metrics"
)

// Server routes API requests to the application facade.
type Server struct {
	app    *app.App
	cfg    *config.Config
	router chi.Router
}

// New creates the Server and registers its routes.
func New(cfg *config.Config, application *app.App) *Server {
	s := &Server{
		app:    application,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/promotions", s.handlePromotions)
		r.Get("/recipes", s.handleListRecipes)
		r.Post("/recipes/generate", s.handleGenerateRecipes)

		// The scrape trigger is admin-only and disabled without a secret.
		if s.cfg.AdminAPISecret != "" {
			r.With(s.requireAdmin).Post("/scrape", s.handleScrape)
		}

		r.Route("/shopping-list", func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/", s.handleBuildList)
			r.Get("/", s.handleGetList)
			r.Delete("/items/{id}", s.handleRemoveItem)
			r.Put("/order", s.handleReorder)
			r.Post("/reset", s.handleResetList)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"timestamp":  time.Now().UTC(),
		"promotions": s.app.Catalog().Len(),
		"health":     metrics.GetSysHealth(filepath.Dir(s.cfg.DatabasePath)),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

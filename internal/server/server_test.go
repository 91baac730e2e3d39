package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyrecipes/internal/app"
	"lazyrecipes/internal/config"
	"lazyrecipes/internal/llm"
	"lazyrecipes/internal/shoppinglist"
	"lazyrecipes/internal/snapshot"
)

type mockTextGenerator struct {
	response string
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, _ string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: m.response}, nil
}

const recipesJSON = `[
  {
    "name": "Honey Garlic Chicken",
    "description": "Sweet and savory.",
    "ingredients": [
      {"item": "Honey", "amount": "3 tbsp", "on_sale": true},
      {"item": "Chicken Breast", "amount": "500 g", "on_sale": false}
    ],
    "instructions": ["Mix.", "Cook."],
    "cooking_time": "30 minutes",
    "servings": 4
  }
]`

func writePromotions(t *testing.T, dir string) {
	t.Helper()
	payload := `{
		"store": "metro",
		"promotions": [
			{"item": "Honey", "price": 3.49, "unit": "375ml", "store": "Metro",
			 "discount": "Save $1.50", "original_price": 4.99}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro_promotions.json"), []byte(payload), 0o644))
}

func newTestServer(t *testing.T, withPromotions bool) *Server {
	t.Helper()

	dir := t.TempDir()
	if withPromotions {
		writePromotions(t, dir)
	}

	cfg := &config.Config{
		PromotionsDir:         dir,
		DatabasePath:          filepath.Join(dir, "test.db"),
		AdminAPISecret:        "test-secret",
		FallbackUnitPrice:     2.99,
		SnapshotMaxAge:        10 * time.Minute,
		SnapshotBuster:        "v2",
		SnapshotWriteInterval: 0,
	}
	keeper := snapshot.NewKeeper(snapshot.NewMemoryStore(), cfg.SnapshotMaxAge, cfg.SnapshotBuster)
	application := app.NewApp(cfg, &mockTextGenerator{response: recipesJSON}, keeper, nil)
	require.NoError(t, application.ReloadPromotions())

	return New(cfg, application)
}

func doJSON(t *testing.T, s *Server, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func generateAndBuild(t *testing.T, s *Server, session string) shoppinglist.Result {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/recipes/generate", "", map[string]any{"num_recipes": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/shopping-list", session, map[string]any{
		"recipe_ids": []string{"recipe_1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res shoppinglist.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, float64(1), response["promotions"])
}

func TestHandlePromotions(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodGet, "/api/promotions", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Promotions []map[string]any `json:"promotions"`
		Count      int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "Honey", response.Promotions[0]["item"])
}

func TestHandleGenerateRecipes(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodPost, "/api/recipes/generate", "", map[string]any{"num_recipes": 1})
	assert.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Recipes []map[string]any `json:"recipes"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "recipe_1", response.Recipes[0]["id"])
}

func TestHandleGenerateRecipesNoPromotions(t *testing.T) {
	s := newTestServer(t, false)

	rec := doJSON(t, s, http.MethodPost, "/api/recipes/generate", "", map[string]any{"num_recipes": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBuildListMintsSessionKey(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodPost, "/api/recipes/generate", "", map[string]any{"num_recipes": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/shopping-list", "", map[string]any{
		"recipe_ids": []string{"recipe_1"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))
}

func TestHandleBuildListErrors(t *testing.T) {
	s := newTestServer(t, true)

	t.Run("EmptySelection", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/shopping-list", "sess", map[string]any{
			"recipe_ids": []string{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownRecipe", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/shopping-list", "sess", map[string]any{
			"recipe_ids": []string{"recipe_99"},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleGetListEmpty(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodGet, "/api/shopping-list", "nobody", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shopping_list":[]`)
}

func TestShoppingListFlow(t *testing.T) {
	s := newTestServer(t, true)
	res := generateAndBuild(t, s, "sess")
	require.Len(t, res.ShoppingList, 2)

	t.Run("Get", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/shopping-list", "sess", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got shoppinglist.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, res.TotalCost, got.TotalCost)
	})

	t.Run("Reorder", func(t *testing.T) {
		ids := []string{res.ShoppingList[1].ID, res.ShoppingList[0].ID}
		rec := doJSON(t, s, http.MethodPut, "/api/shopping-list/order", "sess", map[string]any{
			"ids": ids,
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var got shoppinglist.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, ids[0], got.ShoppingList[0].ID)
		assert.Equal(t, res.TotalCost, got.TotalCost)
	})

	t.Run("ReorderMismatch", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPut, "/api/shopping-list/order", "sess", map[string]any{
			"ids": []string{res.ShoppingList[0].ID},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodDelete, "/api/shopping-list/items/"+res.ShoppingList[0].ID, "sess", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Removed      bool                `json:"removed"`
			ShoppingList []shoppinglist.Item `json:"shopping_list"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.True(t, response.Removed)
		assert.Len(t, response.ShoppingList, 1)
	})

	t.Run("RemoveUnknownIsIdempotent", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodDelete, "/api/shopping-list/items/item-9-ghost", "sess", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"removed":false`)
	})

	t.Run("Reset", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/shopping-list/reset", "sess", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, s, http.MethodGet, "/api/shopping-list", "sess", nil)
		assert.Contains(t, rec.Body.String(), `"shopping_list":[]`)
	})
}

func TestRemoveWithoutList(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodDelete, "/api/shopping-list/items/item-1-honey", "nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScrapeRequiresToken(t *testing.T) {
	s := newTestServer(t, true)

	rec := doJSON(t, s, http.MethodPost, "/api/scrape", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScrapeRejectsBadToken(t *testing.T) {
	s := newTestServer(t, true)

	token, err := NewAdminToken("wrong-secret", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := NewAdminToken("test-secret", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, verifyAdminToken(token, "test-secret"))

	expired, err := NewAdminToken("test-secret", -time.Minute)
	require.NoError(t, err)
	assert.Error(t, verifyAdminToken(expired, "test-secret"))
}

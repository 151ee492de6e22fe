package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/syncd/internal/catalog"
)

func filtersFromQuery(r *http.Request) catalog.Filters {
	q := r.URL.Query()
	return catalog.Filters{
		Category: strings.TrimSpace(q.Get("category")),
		Country:  strings.TrimSpace(q.Get("country")),
		Year:     strings.TrimSpace(q.Get("year")),
	}
}

// ListMovies handles GET /v1/catalog/lists/{list_type}?page=N&category=&country=&year=
func ListMovies(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		listType := strings.TrimSpace(chi.URLParam(r, "list_type"))
		page := parsePage(r.URL.Query().Get("page"))
		f := filtersFromQuery(r)

		key := fmt.Sprintf("ListMovies:%s:%d:%s:%s:%s", listType, page, f.Category, f.Country, f.Year)
		if cached, ok := cache.Get(key); ok {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}

		resp, err := c.ListMovies(r.Context(), listType, page, f, r.URL.Query().Get("sort_field"))
		if err != nil {
			api.BadGateway(w, "CATALOG_UNAVAILABLE", "catalog upstream failed", rid)
			return
		}
		cache.Set(key, resp)
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// SearchMovies handles GET /v1/catalog/search?keyword=...&page=N
func SearchMovies(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
		if keyword == "" {
			api.BadRequest(w, "MISSING_KEYWORD", "keyword is required", rid, nil)
			return
		}
		page := parsePage(r.URL.Query().Get("page"))
		f := filtersFromQuery(r)

		key := fmt.Sprintf("SearchMovies:%s:%d:%s:%s:%s", keyword, page, f.Category, f.Country, f.Year)
		if cached, ok := cache.Get(key); ok {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}

		resp, err := c.SearchMovies(r.Context(), keyword, page, f)
		if err != nil {
			api.BadGateway(w, "CATALOG_UNAVAILABLE", "catalog upstream failed", rid)
			return
		}
		cache.Set(key, resp)
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// GetMovie handles GET /v1/catalog/movies/{movie_slug}
func GetMovie(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		slug := strings.TrimSpace(chi.URLParam(r, "movie_slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "movie_slug is required", rid, nil)
			return
		}

		key := "GetMovie:" + slug
		if cached, ok := cache.Get(key); ok {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}

		resp, err := c.MovieDetail(r.Context(), slug)
		if err != nil {
			api.BadGateway(w, "CATALOG_UNAVAILABLE", "catalog upstream failed", rid)
			return
		}
		cache.Set(key, resp)
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// MoviesByCategory handles GET /v1/catalog/categories/{category_slug}/movies?page=N
func MoviesByCategory(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		slug := strings.TrimSpace(chi.URLParam(r, "category_slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "category_slug is required", rid, nil)
			return
		}
		page := parsePage(r.URL.Query().Get("page"))

		key := fmt.Sprintf("MoviesByCategory:%s:%d", slug, page)
		if cached, ok := cache.Get(key); ok {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}

		resp, err := c.MoviesByCategory(r.Context(), slug, page)
		if err != nil {
			api.BadGateway(w, "CATALOG_UNAVAILABLE", "catalog upstream failed", rid)
			return
		}
		cache.Set(key, resp)
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// ListCategories handles GET /v1/catalog/categories
func ListCategories(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return taxonomyHandler(cache, "ListCategories", c.Categories)
}

// ListCountries handles GET /v1/catalog/countries
func ListCountries(c *catalog.Client, cache catalog.Cache) http.HandlerFunc {
	return taxonomyHandler(cache, "ListCountries", c.Countries)
}

func taxonomyHandler(cache catalog.Cache, key string, fetch func(context.Context) ([]catalog.Taxonomy, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		if cached, ok := cache.Get(key); ok {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}
		items, err := fetch(r.Context())
		if err != nil {
			api.BadGateway(w, "CATALOG_UNAVAILABLE", "catalog upstream failed", rid)
			return
		}
		resp := map[string]any{"items": items}
		cache.Set(key, resp)
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// Package handlers exposes the daemon's HTTP surface: the local collection
// state, the sign-in merge, and the proxied catalog reads.
package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/state"
	syncengine "github.com/example/movie-platform/services/syncd/internal/sync"
)

// currentUser returns the signed-in user's id, or "" for anonymous requests.
func currentUser(r *http.Request) string {
	uid, _ := auth.UserIDFromContext(r.Context())
	return strings.TrimSpace(uid)
}

// ListProgress handles GET /v1/state/progress
func ListProgress(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"progress": m.Local().Progress()})
	}
}

// GetProgress handles GET /v1/state/progress/{movie_slug}
func GetProgress(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		slug := strings.TrimSpace(chi.URLParam(r, "movie_slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "movie_slug is required", rid, nil)
			return
		}
		p, ok := m.Local().GetProgress(slug)
		if !ok {
			api.NotFound(w, "NOT_FOUND", "no progress for movie", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// SaveProgress handles POST /v1/state/progress
func SaveProgress(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req state.Progress
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.MovieSlug) == "" {
			api.BadRequest(w, "MISSING_SLUG", "movie_slug is required", rid, nil)
			return
		}
		m.RecordProgress(currentUser(r), req)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListFavorites handles GET /v1/state/favorites
func ListFavorites(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"favorites": m.Local().Favorites()})
	}
}

// GetFavorite handles GET /v1/state/favorites/{movie_slug}
func GetFavorite(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "movie_slug"))
		api.WriteJSON(w, http.StatusOK, map[string]any{"favorite": m.Local().IsFavorite(slug)})
	}
}

// ToggleFavorite handles POST /v1/state/favorites/toggle
func ToggleFavorite(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req state.Favorite
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.MovieSlug) == "" {
			api.BadRequest(w, "MISSING_SLUG", "movie_slug is required", rid, nil)
			return
		}
		nowFav := m.ToggleFavorite(currentUser(r), req)
		api.WriteJSON(w, http.StatusOK, map[string]any{"favorite": nowFav})
	}
}

// ListHistory handles GET /v1/state/history
func ListHistory(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"history": m.Local().History()})
	}
}

// AddHistory handles POST /v1/state/history
func AddHistory(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req state.History
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.MovieSlug) == "" || strings.TrimSpace(req.EpisodeSlug) == "" {
			api.BadRequest(w, "MISSING_SLUG", "movie_slug and episode_slug are required", rid, nil)
			return
		}
		m.RecordHistory(currentUser(r), req)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearHistory handles DELETE /v1/state/history. Local only: the account
// copy is untouched and repopulates this device on the next sign-in merge.
func ClearHistory(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.ClearHistory()
		w.WriteHeader(http.StatusNoContent)
	}
}

// SignIn handles POST /v1/sync/login. Requires auth; runs the one-time merge
// for the session and returns the continue-watching candidate, null when
// nothing qualifies.
func SignIn(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid := currentUser(r)
		if uid == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}
		resume := m.MergeOnSignIn(r.Context(), uid)
		api.WriteJSON(w, http.StatusOK, map[string]any{"resume": resume})
	}
}

// GetResume handles GET /v1/sync/resume
func GetResume(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"resume": m.ResumeCandidate()})
	}
}

// DismissResume handles POST /v1/sync/resume/dismiss
func DismissResume(m *syncengine.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.DismissResume()
		w.WriteHeader(http.StatusNoContent)
	}
}

package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/movie-platform/internal/state"
)

// HTTPStore talks to a hosted collection service with a PostgREST-shaped row
// API: one resource per collection, rows filtered by user_id, upserts by
// primary key. This is the RowStore used when devices cannot reach Postgres
// directly.
type HTTPStore struct {
	BaseURL    string
	APIKey     string
	Token      string // bearer token of the acting user
	HTTPClient *http.Client
}

func NewHTTPStore(baseURL, apiKey, token string) *HTTPStore {
	return &HTTPStore{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPStore) Progress(ctx context.Context, userID string) ([]state.ProgressRow, error) {
	var out []state.ProgressRow
	if err := s.readAll(ctx, "user_progress", userID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPStore) UpsertProgress(ctx context.Context, rows []state.ProgressRow) error {
	return s.upsert(ctx, "user_progress", rows)
}

func (s *HTTPStore) Favorites(ctx context.Context, userID string) ([]state.FavoriteRow, error) {
	var out []state.FavoriteRow
	if err := s.readAll(ctx, "user_favorites", userID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPStore) UpsertFavorites(ctx context.Context, rows []state.FavoriteRow) error {
	return s.upsert(ctx, "user_favorites", rows)
}

func (s *HTTPStore) MarkFavoriteDeleted(ctx context.Context, userID, movieSlug string, deletedAtMs int64) error {
	u := fmt.Sprintf("%s/user_favorites?user_id=eq.%s&movie_slug=eq.%s",
		s.BaseURL, url.QueryEscape(userID), url.QueryEscape(movieSlug))
	body, _ := json.Marshal(map[string]int64{"deleted_at_ms": deletedAtMs})
	return s.do(ctx, http.MethodPatch, u, body, nil)
}

func (s *HTTPStore) History(ctx context.Context, userID string) ([]state.HistoryRow, error) {
	var out []state.HistoryRow
	if err := s.readAll(ctx, "user_history", userID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPStore) UpsertHistory(ctx context.Context, rows []state.HistoryRow) error {
	return s.upsert(ctx, "user_history", rows)
}

func (s *HTTPStore) readAll(ctx context.Context, collection, userID string, dest any) error {
	u := fmt.Sprintf("%s/%s?user_id=eq.%s", s.BaseURL, collection, url.QueryEscape(userID))
	return s.do(ctx, http.MethodGet, u, nil, dest)
}

func (s *HTTPStore) upsert(ctx context.Context, collection string, rows any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, s.BaseURL+"/"+collection, body, nil)
}

func (s *HTTPStore) do(ctx context.Context, method, rawURL string, body []byte, dest any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		// Insert-or-replace by primary key.
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	}
	if s.APIKey != "" {
		req.Header.Set("apikey", s.APIKey)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collection store: status %d body=%q", resp.StatusCode, string(b[:min(len(b), 200)]))
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("collection store: decode error: %w", err)
	}
	return nil
}

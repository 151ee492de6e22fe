package remotestore

import (
	"context"
	"sync"

	"github.com/example/movie-platform/internal/state"
)

// Memory is an in-memory RowStore for tests and single-process dev mode.
type Memory struct {
	mu        sync.RWMutex
	progress  map[string]map[string]state.ProgressRow // userID -> movieSlug -> row
	favorites map[string]map[string]state.FavoriteRow // userID -> movieSlug -> row
	history   map[string]map[string]state.HistoryRow  // userID -> pair key -> row
}

func NewMemory() *Memory {
	return &Memory{
		progress:  make(map[string]map[string]state.ProgressRow),
		favorites: make(map[string]map[string]state.FavoriteRow),
		history:   make(map[string]map[string]state.HistoryRow),
	}
}

func (m *Memory) Progress(_ context.Context, userID string) ([]state.ProgressRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]state.ProgressRow, 0, len(m.progress[userID]))
	for _, r := range m.progress[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) UpsertProgress(_ context.Context, rows []state.ProgressRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if m.progress[r.UserID] == nil {
			m.progress[r.UserID] = make(map[string]state.ProgressRow)
		}
		// Stale writes lose, matching the Postgres LWW guard.
		if cur, ok := m.progress[r.UserID][r.MovieSlug]; ok && cur.UpdatedAtMs > r.UpdatedAtMs {
			continue
		}
		m.progress[r.UserID][r.MovieSlug] = r
	}
	return nil
}

func (m *Memory) Favorites(_ context.Context, userID string) ([]state.FavoriteRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]state.FavoriteRow, 0, len(m.favorites[userID]))
	for _, r := range m.favorites[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) UpsertFavorites(_ context.Context, rows []state.FavoriteRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if m.favorites[r.UserID] == nil {
			m.favorites[r.UserID] = make(map[string]state.FavoriteRow)
		}
		m.favorites[r.UserID][r.MovieSlug] = r
	}
	return nil
}

func (m *Memory) MarkFavoriteDeleted(_ context.Context, userID, movieSlug string, deletedAtMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.favorites[userID][movieSlug]
	if !ok {
		// Nothing to tombstone; the row never reached this store.
		return nil
	}
	r.DeletedAtMs = &deletedAtMs
	m.favorites[userID][movieSlug] = r
	return nil
}

func (m *Memory) History(_ context.Context, userID string) ([]state.HistoryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]state.HistoryRow, 0, len(m.history[userID]))
	for _, r := range m.history[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) UpsertHistory(_ context.Context, rows []state.HistoryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if m.history[r.UserID] == nil {
			m.history[r.UserID] = make(map[string]state.HistoryRow)
		}
		if cur, ok := m.history[r.UserID][r.Key()]; ok && cur.WatchedAtMs > r.WatchedAtMs {
			continue
		}
		m.history[r.UserID][r.Key()] = r
	}
	return nil
}

// Package localstore is the device-local state store: three collections
// (progress, favorites, history) persisted in a single bbolt file, invisible
// to other devices. It is the authoritative source for what this device
// displays; the remote account store only catches up via merge and push.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/example/movie-platform/internal/state"
)

var bucketCollections = []byte("collections")

// Store persists each collection as one JSON document, so every write is a
// whole-collection replacement. Reads never fail: a missing or corrupt
// document degrades to an empty collection.
type Store struct {
	db *bolt.DB

	mu sync.RWMutex
	// Memory-only fallback when opened without a path (tests, ephemeral mode).
	mem map[string][]byte

	// nowMs is the clock used to stamp records; overridable in tests.
	nowMs func() int64
}

// Open opens (or creates) the store at dir/state.db. An empty dir gives a
// memory-only store with no persistence.
func Open(dir string) (*Store, error) {
	s := &Store{mem: make(map[string][]byte), nowMs: func() int64 { return time.Now().UnixMilli() }}
	if dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, "state.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) get(key string, dest any) bool {
	if s.db == nil {
		s.mu.RLock()
		data, ok := s.mem[key]
		s.mu.RUnlock()
		if !ok {
			return false
		}
		return json.Unmarshal(data, dest) == nil
	}

	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketCollections).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.db == nil {
		s.mu.Lock()
		s.mem[key] = data
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollections).Put([]byte(key), data)
	})
}

// === Whole-collection reads and writes ===

func (s *Store) Progress() map[string]state.Progress {
	out := make(map[string]state.Progress)
	_ = s.get(state.CollectionProgress, &out)
	if out == nil {
		out = make(map[string]state.Progress)
	}
	return out
}

func (s *Store) SetProgress(m map[string]state.Progress) error {
	return s.put(state.CollectionProgress, m)
}

func (s *Store) Favorites() []state.Favorite {
	var out []state.Favorite
	_ = s.get(state.CollectionFavorites, &out)
	return out
}

func (s *Store) SetFavorites(list []state.Favorite) error {
	return s.put(state.CollectionFavorites, list)
}

func (s *Store) History() []state.History {
	var out []state.History
	_ = s.get(state.CollectionHistory, &out)
	return out
}

func (s *Store) SetHistory(list []state.History) error {
	if len(list) > state.HistoryLimit {
		list = list[:state.HistoryLimit]
	}
	return s.put(state.CollectionHistory, list)
}

// === Record-level mutators ===

// SaveProgress upserts the playback cursor for a movie. A zero UpdatedAtMs is
// stamped with the current time. The stored record is returned so callers can
// mirror exactly what was written.
func (s *Store) SaveProgress(p state.Progress) (state.Progress, error) {
	if p.UpdatedAtMs == 0 {
		p.UpdatedAtMs = s.nowMs()
	}
	all := s.Progress()
	all[p.MovieSlug] = p
	return p, s.SetProgress(all)
}

func (s *Store) GetProgress(movieSlug string) (state.Progress, bool) {
	p, ok := s.Progress()[movieSlug]
	return p, ok
}

// AddHistory prepends the entry, removing any previous entry for the same
// (movie, episode) pair and capping the list to the most recent entries.
func (s *Store) AddHistory(h state.History) (state.History, error) {
	if h.WatchedAtMs == 0 {
		h.WatchedAtMs = s.nowMs()
	}
	old := s.History()
	list := make([]state.History, 0, len(old)+1)
	list = append(list, h)
	for _, e := range old {
		if e.Key() == h.Key() {
			continue
		}
		list = append(list, e)
	}
	return h, s.SetHistory(list)
}

// ClearHistory resets the local history only; the remote copy is deliberately
// left alone and will repopulate on the next merge.
func (s *Store) ClearHistory() error {
	return s.SetHistory(nil)
}

// ToggleFavorite adds the favorite if absent (prepending, stamping AddedAtMs
// when zero) or removes it if present. Returns whether the movie is a
// favorite after the call.
func (s *Store) ToggleFavorite(f state.Favorite) (bool, error) {
	list := s.Favorites()
	for i, e := range list {
		if e.MovieSlug == f.MovieSlug {
			list = append(list[:i], list[i+1:]...)
			return false, s.SetFavorites(list)
		}
	}
	if f.AddedAtMs == 0 {
		f.AddedAtMs = s.nowMs()
	}
	list = append([]state.Favorite{f}, list...)
	return true, s.SetFavorites(list)
}

func (s *Store) IsFavorite(movieSlug string) bool {
	for _, e := range s.Favorites() {
		if e.MovieSlug == movieSlug {
			return true
		}
	}
	return false
}

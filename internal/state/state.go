// Package state holds the record types tracked per user: playback progress,
// favorites and watch history, in both their device-local and remote (per-user
// row) shapes.
package state

// Collection names, shared by the local store and the remote row store.
const (
	CollectionProgress  = "progress"
	CollectionFavorites = "favorites"
	CollectionHistory   = "history"
)

// HistoryLimit caps the watch-history collection to the most recent entries.
const HistoryLimit = 100

// Progress is the playback cursor for a movie, keyed by movie slug. There is
// at most one entry per movie; it always points at the last-watched episode.
type Progress struct {
	MovieSlug   string `json:"movie_slug"`
	EpisodeSlug string `json:"episode_slug"`
	ServerName  string `json:"server_name,omitempty"`
	PositionMs  int64  `json:"position_ms"`
	DurationMs  int64  `json:"duration_ms"`
	// UpdatedAtMs is the conflict-resolution clock (epoch millis).
	UpdatedAtMs int64 `json:"updated_at_ms"`
}

// Favorite is the device-local favorite shape. Locally a favorite either
// exists in the list or it does not; tombstones exist only remotely.
type Favorite struct {
	MovieSlug      string `json:"movie_slug"`
	Name           string `json:"name"`
	ThumbURL       string `json:"thumb_url"`
	Year           int    `json:"year"`
	EpisodeCurrent string `json:"episode_current"`
	AddedAtMs      int64  `json:"added_at_ms"`
}

// History is one watched episode, keyed by the (movie, episode) pair.
type History struct {
	MovieSlug   string `json:"movie_slug"`
	EpisodeSlug string `json:"episode_slug"`
	MovieName   string `json:"movie_name"`
	EpisodeName string `json:"episode_name"`
	ThumbURL    string `json:"thumb_url"`
	PositionMs  int64  `json:"position_ms"`
	DurationMs  int64  `json:"duration_ms"`
	WatchedAtMs int64  `json:"watched_at_ms"`
}

// Key returns the pair key used to dedupe history entries.
func (h History) Key() string {
	return h.MovieSlug + ":" + h.EpisodeSlug
}

// ProgressRow is the remote shape of Progress, scoped to a user.
type ProgressRow struct {
	UserID string `json:"user_id"`
	Progress
}

// FavoriteRow is the remote shape of Favorite. DeletedAtMs is the tombstone:
// non-nil means the favorite was removed on some device and the removal must
// propagate instead of being resurrected by a stale local copy.
type FavoriteRow struct {
	UserID string `json:"user_id"`
	Favorite
	DeletedAtMs *int64 `json:"deleted_at_ms"`
}

// HistoryRow is the remote shape of History, scoped to a user.
type HistoryRow struct {
	UserID string `json:"user_id"`
	History
}

// Package syncevents defines the one-directional mutation events the
// incremental pusher emits and the syncworker consumes. There is no
// acknowledgment contract: a publish that lands is applied at least once
// (the store's last-write-wins guards make replays harmless), a publish
// that fails is lost until the next merge or the next write of the same key.
package syncevents

import (
	"github.com/example/movie-platform/internal/state"
)

// JetStream subjects, one per mutation kind.
const (
	SubjectProgress        = "sync.progress"
	SubjectFavoriteAdded   = "sync.favorite.added"
	SubjectFavoriteRemoved = "sync.favorite.removed"
	SubjectHistory         = "sync.history"
)

// Stream groups all sync subjects.
const Stream = "SYNC"

// Envelope carries event identity for idempotent consumption.
type Envelope struct {
	EventID   string `json:"event_id"`
	CreatedAt string `json:"created_at"` // RFC3339
}

type ProgressEvent struct {
	Envelope
	Row state.ProgressRow `json:"row"`
}

type FavoriteAddedEvent struct {
	Envelope
	Row state.FavoriteRow `json:"row"`
}

type FavoriteRemovedEvent struct {
	Envelope
	UserID      string `json:"user_id"`
	MovieSlug   string `json:"movie_slug"`
	DeletedAtMs int64  `json:"deleted_at_ms"`
}

type HistoryEvent struct {
	Envelope
	Row state.HistoryRow `json:"row"`
}

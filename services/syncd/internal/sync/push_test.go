package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"

	"github.com/example/movie-platform/internal/state"
)

// recordingSink captures pushed records for inspection.
type recordingSink struct {
	mu       stdsync.Mutex
	progress []state.ProgressRow
	added    []state.FavoriteRow
	removed  []string
	history  []state.HistoryRow
	err      error
}

func (s *recordingSink) PushProgress(_ context.Context, row state.ProgressRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, row)
	return s.err
}

func (s *recordingSink) PushFavoriteAdded(_ context.Context, row state.FavoriteRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, row)
	return s.err
}

func (s *recordingSink) PushFavoriteRemoved(_ context.Context, _, movieSlug string, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, movieSlug)
	return s.err
}

func (s *recordingSink) PushHistory(_ context.Context, row state.HistoryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, row)
	return s.err
}

func TestPusherDeliversEachKind(t *testing.T) {
	sink := &recordingSink{}
	p := NewPusher(sink, nil)

	p.Progress(state.ProgressRow{UserID: "u1", Progress: state.Progress{MovieSlug: "m1"}})
	p.FavoriteAdded(state.FavoriteRow{UserID: "u1", Favorite: state.Favorite{MovieSlug: "m2"}})
	p.FavoriteRemoved("u1", "m3", 123)
	p.History(state.HistoryRow{UserID: "u1", History: state.History{MovieSlug: "m4", EpisodeSlug: "e1"}})
	p.Flush()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.progress) != 1 || sink.progress[0].MovieSlug != "m1" {
		t.Fatalf("progress not delivered: %+v", sink.progress)
	}
	if len(sink.added) != 1 || sink.added[0].MovieSlug != "m2" {
		t.Fatalf("favorite add not delivered: %+v", sink.added)
	}
	if len(sink.removed) != 1 || sink.removed[0] != "m3" {
		t.Fatalf("favorite removal not delivered: %+v", sink.removed)
	}
	if len(sink.history) != 1 || sink.history[0].MovieSlug != "m4" {
		t.Fatalf("history not delivered: %+v", sink.history)
	}
}

func TestPusherSwallowsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("boom")}
	p := NewPusher(sink, nil)

	// Must not panic or surface the error anywhere.
	p.Progress(state.ProgressRow{UserID: "u1", Progress: state.Progress{MovieSlug: "m1"}})
	p.Flush()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.progress) != 1 {
		t.Fatalf("push must still be attempted, got %+v", sink.progress)
	}
}

func TestNilPusherIsNoop(t *testing.T) {
	var p *Pusher
	p.Progress(state.ProgressRow{})
	p.FavoriteAdded(state.FavoriteRow{})
	p.FavoriteRemoved("u1", "m1", 1)
	p.History(state.HistoryRow{})
	p.Flush()
}

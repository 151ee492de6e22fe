package remotestore

import (
	"context"
	"testing"

	"github.com/example/movie-platform/internal/state"
)

func TestMemory_ProgressScopedByUser(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_ = s.UpsertProgress(ctx, []state.ProgressRow{
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m1", UpdatedAtMs: 100}},
		{UserID: "u2", Progress: state.Progress{MovieSlug: "m1", UpdatedAtMs: 200}},
	})

	rows, err := s.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for u1, got %d", len(rows))
	}
	if rows[0].UpdatedAtMs != 100 {
		t.Fatalf("expected u1's own row, got updated_at_ms=%d", rows[0].UpdatedAtMs)
	}
}

func TestMemory_ProgressStaleWriteLoses(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_ = s.UpsertProgress(ctx, []state.ProgressRow{
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m1", PositionMs: 500, UpdatedAtMs: 1000}},
	})
	_ = s.UpsertProgress(ctx, []state.ProgressRow{
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m1", PositionMs: 100, UpdatedAtMs: 900}},
	})

	rows, _ := s.Progress(ctx, "u1")
	if rows[0].PositionMs != 500 || rows[0].UpdatedAtMs != 1000 {
		t.Fatalf("stale write should lose, got %+v", rows[0])
	}
}

func TestMemory_MarkFavoriteDeleted(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_ = s.UpsertFavorites(ctx, []state.FavoriteRow{
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "m1", AddedAtMs: 10}},
	})
	if err := s.MarkFavoriteDeleted(ctx, "u1", "m1", 999); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	rows, _ := s.Favorites(ctx, "u1")
	if len(rows) != 1 {
		t.Fatalf("tombstoned row must be retained, got %d rows", len(rows))
	}
	if rows[0].DeletedAtMs == nil || *rows[0].DeletedAtMs != 999 {
		t.Fatalf("expected deleted_at_ms=999, got %v", rows[0].DeletedAtMs)
	}
}

func TestMemory_MarkFavoriteDeleted_MissingRowIsNoop(t *testing.T) {
	s := NewMemory()
	if err := s.MarkFavoriteDeleted(context.Background(), "u1", "never-seen", 1); err != nil {
		t.Fatalf("expected nil error for missing row, got %v", err)
	}
}

func TestMemory_HistoryStaleWriteLoses(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_ = s.UpsertHistory(ctx, []state.HistoryRow{
		{UserID: "u1", History: state.History{MovieSlug: "m1", EpisodeSlug: "e1", WatchedAtMs: 900}},
	})
	_ = s.UpsertHistory(ctx, []state.HistoryRow{
		{UserID: "u1", History: state.History{MovieSlug: "m1", EpisodeSlug: "e1", WatchedAtMs: 500}},
	})

	rows, _ := s.History(ctx, "u1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].WatchedAtMs != 900 {
		t.Fatalf("stale history write should lose, got watched_at_ms=%d", rows[0].WatchedAtMs)
	}
}

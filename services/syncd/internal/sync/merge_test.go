package sync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/internal/state"
	"github.com/example/movie-platform/services/syncd/internal/localstore"
)

func newTestStores(t *testing.T) (*localstore.Store, *remotestore.Memory) {
	t.Helper()
	local, err := localstore.Open("")
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })
	return local, remotestore.NewMemory()
}

// errStore fails every operation; used to prove remote failure isolation.
type errStore struct{}

var errRemoteDown = errors.New("remote down")

func (errStore) Progress(context.Context, string) ([]state.ProgressRow, error) {
	return nil, errRemoteDown
}
func (errStore) UpsertProgress(context.Context, []state.ProgressRow) error { return errRemoteDown }
func (errStore) Favorites(context.Context, string) ([]state.FavoriteRow, error) {
	return nil, errRemoteDown
}
func (errStore) UpsertFavorites(context.Context, []state.FavoriteRow) error { return errRemoteDown }
func (errStore) MarkFavoriteDeleted(context.Context, string, string, int64) error {
	return errRemoteDown
}
func (errStore) History(context.Context, string) ([]state.HistoryRow, error) {
	return nil, errRemoteDown
}
func (errStore) UpsertHistory(context.Context, []state.HistoryRow) error { return errRemoteDown }

func TestMergeProgress_LastWriteWins(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name        string
		localTs     int64
		remoteTs    int64
		wantLocalTs int64
		wantPushed  bool
	}{
		{"local newer wins and is pushed", 2000, 1000, 2000, true},
		{"remote newer overwrites local", 1000, 2000, 2000, false},
		{"exact tie: local wins", 1500, 1500, 1500, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			local, remote := newTestStores(t)
			_ = local.SetProgress(map[string]state.Progress{
				"m1": {MovieSlug: "m1", EpisodeSlug: "local-ep", PositionMs: 111, UpdatedAtMs: tc.localTs},
			})
			_ = remote.UpsertProgress(ctx, []state.ProgressRow{
				{UserID: "u1", Progress: state.Progress{MovieSlug: "m1", EpisodeSlug: "remote-ep", PositionMs: 222, UpdatedAtMs: tc.remoteTs}},
			})

			NewMerger(local, remote, nil).Run(ctx, "u1")

			got, ok := local.GetProgress("m1")
			if !ok {
				t.Fatal("expected merged progress for m1")
			}
			if got.UpdatedAtMs != tc.wantLocalTs {
				t.Fatalf("expected local updated_at_ms=%d, got %d", tc.wantLocalTs, got.UpdatedAtMs)
			}

			rows, _ := remote.Progress(ctx, "u1")
			if len(rows) != 1 {
				t.Fatalf("expected 1 remote row, got %d", len(rows))
			}
			if tc.wantPushed && rows[0].EpisodeSlug != "local-ep" {
				t.Fatalf("expected local row pushed to remote, got %+v", rows[0])
			}
			if !tc.wantPushed && rows[0].EpisodeSlug != "remote-ep" {
				t.Fatalf("expected remote row untouched, got %+v", rows[0])
			}
		})
	}
}

func TestMergeProgress_OnlyLocalIsUploaded(t *testing.T) {
	// Scenario: local has a cursor the remote has never seen.
	ctx := context.Background()
	local, remote := newTestStores(t)
	_ = local.SetProgress(map[string]state.Progress{
		"m1": {MovieSlug: "m1", EpisodeSlug: "e1", PositionMs: 120000, DurationMs: 600000, UpdatedAtMs: 1000},
	})

	NewMerger(local, remote, nil).Run(ctx, "u1")

	rows, _ := remote.Progress(ctx, "u1")
	if len(rows) != 1 || rows[0].MovieSlug != "m1" || rows[0].UpdatedAtMs != 1000 {
		t.Fatalf("expected m1 upserted remotely with updated_at_ms=1000, got %+v", rows)
	}
	got, _ := local.GetProgress("m1")
	if got.PositionMs != 120000 || got.UpdatedAtMs != 1000 {
		t.Fatalf("local record must be unchanged, got %+v", got)
	}
}

func TestMergeProgress_OnlyRemoteIsAdopted(t *testing.T) {
	ctx := context.Background()
	local, remote := newTestStores(t)
	_ = remote.UpsertProgress(ctx, []state.ProgressRow{
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m9", EpisodeSlug: "e3", PositionMs: 42, UpdatedAtMs: 7}},
	})

	NewMerger(local, remote, nil).Run(ctx, "u1")

	got, ok := local.GetProgress("m9")
	if !ok || got.EpisodeSlug != "e3" || got.PositionMs != 42 {
		t.Fatalf("expected remote-only row adopted locally, got %+v (ok=%v)", got, ok)
	}
}

func TestMergeFavorites_TombstoneAlwaysPropagates(t *testing.T) {
	// Scenario: favorite deleted on another device, still present here.
	ctx := context.Background()
	local, remote := newTestStores(t)
	_ = local.SetFavorites([]state.Favorite{{MovieSlug: "m2", Name: "Movie Two", AddedAtMs: 1}})
	deleted := int64(2000)
	_ = remote.UpsertFavorites(ctx, []state.FavoriteRow{
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "m2", AddedAtMs: 1}, DeletedAtMs: &deleted},
	})

	NewMerger(local, remote, nil).Run(ctx, "u1")

	for _, f := range local.Favorites() {
		if f.MovieSlug == "m2" {
			t.Fatal("tombstoned favorite must be removed locally")
		}
	}
	// The tombstone itself must survive the merge.
	rows, _ := remote.Favorites(ctx, "u1")
	if len(rows) != 1 || rows[0].DeletedAtMs == nil {
		t.Fatalf("expected remote tombstone retained, got %+v", rows)
	}
}

func TestMergeFavorites_RemoteOnlyPrependedLocalOnlyPushed(t *testing.T) {
	ctx := context.Background()
	local, remote := newTestStores(t)
	_ = local.SetFavorites([]state.Favorite{
		{MovieSlug: "local-1", AddedAtMs: 10},
		{MovieSlug: "both", Name: "local copy", AddedAtMs: 20},
	})
	_ = remote.UpsertFavorites(ctx, []state.FavoriteRow{
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "remote-1", AddedAtMs: 30}},
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "both", Name: "remote copy", AddedAtMs: 20}},
	})

	NewMerger(local, remote, nil).Run(ctx, "u1")

	got := local.Favorites()
	if len(got) != 3 {
		t.Fatalf("expected 3 favorites, got %+v", got)
	}
	if got[0].MovieSlug != "remote-1" {
		t.Fatalf("remote-only favorite must be prepended, got order %+v", got)
	}
	// Rows present on both sides keep the local copy untouched.
	for _, f := range got {
		if f.MovieSlug == "both" && f.Name != "local copy" {
			t.Fatalf("expected local copy retained for shared key, got %q", f.Name)
		}
	}

	rows, _ := remote.Favorites(ctx, "u1")
	bySlug := make(map[string]state.FavoriteRow)
	for _, r := range rows {
		bySlug[r.MovieSlug] = r
	}
	pushed, ok := bySlug["local-1"]
	if !ok {
		t.Fatal("local-only favorite must be pushed to remote")
	}
	if pushed.DeletedAtMs != nil {
		t.Fatal("pushed favorite must carry a nil tombstone")
	}
	// The shared key must not be re-pushed over the remote copy.
	if bySlug["both"].Name != "remote copy" {
		t.Fatalf("shared key must not be re-uploaded, remote now has %q", bySlug["both"].Name)
	}
}

func TestMergeHistory_NewerRemoteAdoptedNotEchoed(t *testing.T) {
	// Scenario: the same episode watched later on another device.
	ctx := context.Background()
	local, remote := newTestStores(t)
	_ = local.SetHistory([]state.History{{MovieSlug: "m3", EpisodeSlug: "e1", PositionMs: 10, WatchedAtMs: 500}})
	_ = remote.UpsertHistory(ctx, []state.HistoryRow{
		{UserID: "u1", History: state.History{MovieSlug: "m3", EpisodeSlug: "e1", PositionMs: 90, WatchedAtMs: 900}},
	})

	NewMerger(local, remote, nil).Run(ctx, "u1")

	list := local.History()
	if len(list) != 1 || list[0].WatchedAtMs != 900 {
		t.Fatalf("expected remote entry adopted locally, got %+v", list)
	}
	rows, _ := remote.History(ctx, "u1")
	if len(rows) != 1 || rows[0].WatchedAtMs != 900 || rows[0].PositionMs != 90 {
		t.Fatalf("losing local row must not be pushed back, got %+v", rows)
	}
}

func TestMergeHistory_CapOrderAndDedupe(t *testing.T) {
	ctx := context.Background()
	local, remote := newTestStores(t)

	var locals []state.History
	for i := 0; i < 80; i++ {
		locals = append(locals, state.History{MovieSlug: "lm", EpisodeSlug: fmt.Sprintf("e%d", i), WatchedAtMs: int64(1000 + i)})
	}
	_ = local.SetHistory(locals)

	var remotes []state.HistoryRow
	for i := 0; i < 80; i++ {
		remotes = append(remotes, state.HistoryRow{
			UserID:  "u1",
			History: state.History{MovieSlug: "rm", EpisodeSlug: fmt.Sprintf("e%d", i), WatchedAtMs: int64(2000 + i)},
		})
	}
	// Overlap one pair key so the union must dedupe it.
	remotes = append(remotes, state.HistoryRow{
		UserID:  "u1",
		History: state.History{MovieSlug: "lm", EpisodeSlug: "e0", WatchedAtMs: 5000},
	})
	_ = remote.UpsertHistory(ctx, remotes)

	NewMerger(local, remote, nil).Run(ctx, "u1")

	list := local.History()
	if len(list) != state.HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", state.HistoryLimit, len(list))
	}
	seen := make(map[string]bool)
	for i, h := range list {
		if i > 0 && list[i-1].WatchedAtMs < h.WatchedAtMs {
			t.Fatalf("history not sorted descending at index %d", i)
		}
		if seen[h.Key()] {
			t.Fatalf("duplicate pair key %q after merge", h.Key())
		}
		seen[h.Key()] = true
	}
	if list[0].Key() != "lm:e0" || list[0].WatchedAtMs != 5000 {
		t.Fatalf("expected the rewatched pair first with the newer clock, got %+v", list[0])
	}
}

func snapshot(t *testing.T, local *localstore.Store, remote *remotestore.Memory) (map[string]state.Progress, []state.Favorite, []state.History, []state.ProgressRow, []state.FavoriteRow, []state.HistoryRow) {
	t.Helper()
	ctx := context.Background()
	rp, _ := remote.Progress(ctx, "u1")
	rf, _ := remote.Favorites(ctx, "u1")
	rh, _ := remote.History(ctx, "u1")
	sort.Slice(rp, func(i, j int) bool { return rp[i].MovieSlug < rp[j].MovieSlug })
	sort.Slice(rf, func(i, j int) bool { return rf[i].MovieSlug < rf[j].MovieSlug })
	sort.Slice(rh, func(i, j int) bool { return rh[i].Key() < rh[j].Key() })
	return local.Progress(), local.Favorites(), local.History(), rp, rf, rh
}

func TestMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local, remote := newTestStores(t)

	_ = local.SetProgress(map[string]state.Progress{
		"m1": {MovieSlug: "m1", EpisodeSlug: "e1", UpdatedAtMs: 100},
		"m2": {MovieSlug: "m2", EpisodeSlug: "e1", UpdatedAtMs: 300},
	})
	_ = local.SetFavorites([]state.Favorite{{MovieSlug: "f1", AddedAtMs: 1}})
	_ = local.SetHistory([]state.History{{MovieSlug: "m1", EpisodeSlug: "e1", WatchedAtMs: 50}})

	deleted := int64(99)
	_ = remote.UpsertProgress(ctx, []state.ProgressRow{
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m2", EpisodeSlug: "e9", UpdatedAtMs: 200}},
		{UserID: "u1", Progress: state.Progress{MovieSlug: "m3", EpisodeSlug: "e1", UpdatedAtMs: 400}},
	})
	_ = remote.UpsertFavorites(ctx, []state.FavoriteRow{
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "f2", AddedAtMs: 2}},
		{UserID: "u1", Favorite: state.Favorite{MovieSlug: "f3", AddedAtMs: 3}, DeletedAtMs: &deleted},
	})
	_ = remote.UpsertHistory(ctx, []state.HistoryRow{
		{UserID: "u1", History: state.History{MovieSlug: "m1", EpisodeSlug: "e1", WatchedAtMs: 80}},
	})

	m := NewMerger(local, remote, nil)
	m.Run(ctx, "u1")
	lp1, lf1, lh1, rp1, rf1, rh1 := snapshot(t, local, remote)

	m.Run(ctx, "u1")
	lp2, lf2, lh2, rp2, rf2, rh2 := snapshot(t, local, remote)

	if !reflect.DeepEqual(lp1, lp2) {
		t.Fatalf("local progress changed on second merge:\n%+v\n%+v", lp1, lp2)
	}
	if !reflect.DeepEqual(lf1, lf2) {
		t.Fatalf("local favorites changed on second merge:\n%+v\n%+v", lf1, lf2)
	}
	if !reflect.DeepEqual(lh1, lh2) {
		t.Fatalf("local history changed on second merge:\n%+v\n%+v", lh1, lh2)
	}
	if !reflect.DeepEqual(rp1, rp2) || !reflect.DeepEqual(rf1, rf2) || !reflect.DeepEqual(rh1, rh2) {
		t.Fatal("remote state changed on second merge")
	}
}

func TestMergeRemoteFailureLeavesLocalUntouched(t *testing.T) {
	ctx := context.Background()
	local, err := localstore.Open("")
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	defer local.Close()

	_ = local.SetProgress(map[string]state.Progress{"m1": {MovieSlug: "m1", EpisodeSlug: "e1", UpdatedAtMs: 1}})
	_ = local.SetFavorites([]state.Favorite{{MovieSlug: "f1", AddedAtMs: 1}})
	_ = local.SetHistory([]state.History{{MovieSlug: "m1", EpisodeSlug: "e1", WatchedAtMs: 1}})

	NewMerger(local, errStore{}, nil).Run(ctx, "u1")

	if got := local.Progress(); len(got) != 1 || got["m1"].EpisodeSlug != "e1" {
		t.Fatalf("progress must be untouched, got %+v", got)
	}
	if got := local.Favorites(); len(got) != 1 || got[0].MovieSlug != "f1" {
		t.Fatalf("favorites must be untouched, got %+v", got)
	}
	if got := local.History(); len(got) != 1 || got[0].Key() != "m1:e1" {
		t.Fatalf("history must be untouched, got %+v", got)
	}
}

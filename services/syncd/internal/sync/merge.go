// Package sync reconciles the device-local collections with the per-user
// remote account store: a one-time merge on sign-in, a fire-and-forget
// incremental push after every local mutation, and the continue-watching
// recommendation derived from the merged history.
package sync

import (
	"context"
	"sort"
	stdsync "sync"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/internal/state"
	"github.com/example/movie-platform/services/syncd/internal/localstore"
)

// Merger reconciles the three collections between the local store and the
// remote account store. Conflicts resolve by last-write-wins on the record
// clocks; the local copy wins exact ties.
type Merger struct {
	local  *localstore.Store
	remote remotestore.RowStore
	log    *zap.Logger
}

func NewMerger(local *localstore.Store, remote remotestore.RowStore, log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{local: local, remote: remote, log: log}
}

// Run merges all three collections for the user. The collection merges are
// independent and run concurrently; each swallows its own errors, so Run can
// only partially apply, never fail. A failed remote read leaves that
// collection's local state untouched.
func (m *Merger) Run(ctx context.Context, userID string) {
	var wg stdsync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); m.mergeProgress(ctx, userID) }()
	go func() { defer wg.Done(); m.mergeFavorites(ctx, userID) }()
	go func() { defer wg.Done(); m.mergeHistory(ctx, userID) }()
	wg.Wait()
}

func (m *Merger) mergeProgress(ctx context.Context, userID string) {
	remoteRows, err := m.remote.Progress(ctx, userID)
	if err != nil {
		m.log.Warn("progress merge: remote read failed", zap.Error(err))
		return
	}
	local := m.local.Progress()

	remoteBySlug := make(map[string]state.ProgressRow, len(remoteRows))
	for _, r := range remoteRows {
		remoteBySlug[r.MovieSlug] = r
	}

	merged := make(map[string]state.Progress, len(local)+len(remoteRows))
	var push []state.ProgressRow
	for slug, lp := range local {
		r, ok := remoteBySlug[slug]
		if !ok || lp.UpdatedAtMs >= r.UpdatedAtMs {
			// Only-local, or local wins (ties included): keep and push.
			merged[slug] = lp
			push = append(push, state.ProgressRow{UserID: userID, Progress: lp})
		} else {
			merged[slug] = r.Progress
		}
	}
	for slug, r := range remoteBySlug {
		if _, ok := local[slug]; !ok {
			merged[slug] = r.Progress
		}
	}

	// Local-first: the merged map lands locally before the batched upsert.
	if err := m.local.SetProgress(merged); err != nil {
		m.log.Warn("progress merge: local write failed", zap.Error(err))
		return
	}
	if len(push) > 0 {
		if err := m.remote.UpsertProgress(ctx, push); err != nil {
			m.log.Warn("progress merge: remote upsert failed", zap.Error(err))
		}
	}
}

func (m *Merger) mergeFavorites(ctx context.Context, userID string) {
	remoteRows, err := m.remote.Favorites(ctx, userID)
	if err != nil {
		m.log.Warn("favorites merge: remote read failed", zap.Error(err))
		return
	}
	local := m.local.Favorites()

	localSet := make(map[string]bool, len(local))
	for _, f := range local {
		localSet[f.MovieSlug] = true
	}

	merged := append([]state.Favorite(nil), local...)
	for _, r := range remoteRows {
		switch {
		case r.DeletedAtMs != nil:
			// Deleted on another device: the tombstone always wins, even over
			// a still-present local copy.
			for i, f := range merged {
				if f.MovieSlug == r.MovieSlug {
					merged = append(merged[:i], merged[i+1:]...)
					break
				}
			}
		case !localSet[r.MovieSlug]:
			// Remote-only addition, treated as newest.
			merged = append([]state.Favorite{r.Favorite}, merged...)
		}
	}

	// Local favorites with no remote row at all (not even a tombstone) are
	// pushed as new rows. A row re-added locally before its tombstone was
	// seen is indistinguishable from a new one here and will resurrect the
	// deletion; known gap carried from the observed behavior.
	remoteSet := make(map[string]bool, len(remoteRows))
	for _, r := range remoteRows {
		remoteSet[r.MovieSlug] = true
	}
	var push []state.FavoriteRow
	for _, f := range local {
		if !remoteSet[f.MovieSlug] {
			push = append(push, state.FavoriteRow{UserID: userID, Favorite: f})
		}
	}

	if err := m.local.SetFavorites(merged); err != nil {
		m.log.Warn("favorites merge: local write failed", zap.Error(err))
		return
	}
	if len(push) > 0 {
		if err := m.remote.UpsertFavorites(ctx, push); err != nil {
			m.log.Warn("favorites merge: remote upsert failed", zap.Error(err))
		}
	}
}

func (m *Merger) mergeHistory(ctx context.Context, userID string) {
	remoteRows, err := m.remote.History(ctx, userID)
	if err != nil {
		m.log.Warn("history merge: remote read failed", zap.Error(err))
		return
	}
	local := m.local.History()

	localKeys := make(map[string]bool, len(local))
	for _, h := range local {
		localKeys[h.Key()] = true
	}
	remoteByKey := make(map[string]state.HistoryRow, len(remoteRows))
	for _, r := range remoteRows {
		remoteByKey[r.Key()] = r
	}

	merged := make([]state.History, 0, len(local)+len(remoteRows))
	var push []state.HistoryRow
	for _, l := range local {
		r, ok := remoteByKey[l.Key()]
		if !ok || l.WatchedAtMs >= r.WatchedAtMs {
			merged = append(merged, l)
			push = append(push, state.HistoryRow{UserID: userID, History: l})
		} else {
			// Remote is newer; adopt it and do not push it back.
			merged = append(merged, r.History)
		}
	}
	for _, r := range remoteRows {
		if !localKeys[r.Key()] {
			merged = append(merged, r.History)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].WatchedAtMs > merged[j].WatchedAtMs
	})
	if len(merged) > state.HistoryLimit {
		merged = merged[:state.HistoryLimit]
	}

	if err := m.local.SetHistory(merged); err != nil {
		m.log.Warn("history merge: local write failed", zap.Error(err))
		return
	}
	if len(push) > 0 {
		if err := m.remote.UpsertHistory(ctx, push); err != nil {
			m.log.Warn("history merge: remote upsert failed", zap.Error(err))
		}
	}
}

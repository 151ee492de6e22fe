package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/state"
	"github.com/example/movie-platform/services/syncd/internal/localstore"
)

// Merge progress for the session-scoped sign-in state machine:
// idle -> running(user) -> done(user). A merge request for a user already
// running or done is a no-op; a different user starts over.
type mergePhase int

const (
	mergeIdle mergePhase = iota
	mergeRunning
	mergeDone
)

// Manager is the UI-facing surface of the sync subsystem. All dependencies
// are injected; none of its methods ever return an error to the caller.
// Failures degrade to unsynchronized data, not broken interactions.
type Manager struct {
	local  *localstore.Store
	merger *Merger
	pusher *Pusher
	log    *zap.Logger

	nowMs func() int64

	mu         stdsync.Mutex
	phase      mergePhase
	mergedUser string
	resume     *state.History
}

func NewManager(local *localstore.Store, merger *Merger, pusher *Pusher, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		local:  local,
		merger: merger,
		pusher: pusher,
		log:    log,
		nowMs:  func() int64 { return time.Now().UnixMilli() },
	}
}

// MergeOnSignIn runs the one-time merge for the anonymous -> signed-in
// transition and returns the continue-watching recommendation derived from
// the merged history (nil when nothing qualifies). Calling it again for the
// same user in this session is a no-op that returns the current
// recommendation; a different user re-runs the merge.
func (m *Manager) MergeOnSignIn(ctx context.Context, userID string) *state.History {
	if userID == "" {
		return nil
	}

	m.mu.Lock()
	if m.mergedUser == userID && m.phase != mergeIdle {
		r := m.resume
		m.mu.Unlock()
		return r
	}
	m.phase = mergeRunning
	m.mergedUser = userID
	m.resume = nil
	m.mu.Unlock()

	m.merger.Run(ctx, userID)
	r := Resume(m.local.History())

	m.mu.Lock()
	// A concurrent sign-in with a different user restarts the machine; only
	// finish the phase we still own.
	if m.mergedUser == userID {
		m.phase = mergeDone
		m.resume = r
	}
	m.mu.Unlock()
	return r
}

// ResumeCandidate returns the current recommendation, nil once dismissed.
func (m *Manager) ResumeCandidate() *state.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resume
}

// DismissResume clears the recommendation from memory; nothing is persisted.
func (m *Manager) DismissResume() {
	m.mu.Lock()
	m.resume = nil
	m.mu.Unlock()
}

// RecordProgress saves the playback cursor locally and, when a user is
// signed in, mirrors it remotely without blocking.
func (m *Manager) RecordProgress(userID string, p state.Progress) {
	p, err := m.local.SaveProgress(p)
	if err != nil {
		m.log.Warn("save progress failed", zap.String("movie", p.MovieSlug), zap.Error(err))
	}
	if userID != "" {
		m.pusher.Progress(state.ProgressRow{UserID: userID, Progress: p})
	}
}

// ToggleFavorite flips the favorite locally and mirrors the change: an add
// upserts the row, a removal tombstones it by key. Returns whether the movie
// is a favorite after the call.
func (m *Manager) ToggleFavorite(userID string, f state.Favorite) bool {
	if f.AddedAtMs == 0 {
		f.AddedAtMs = m.nowMs()
	}
	nowFav, err := m.local.ToggleFavorite(f)
	if err != nil {
		m.log.Warn("toggle favorite failed", zap.String("movie", f.MovieSlug), zap.Error(err))
	}
	if userID != "" {
		if nowFav {
			m.pusher.FavoriteAdded(state.FavoriteRow{UserID: userID, Favorite: f})
		} else {
			m.pusher.FavoriteRemoved(userID, f.MovieSlug, m.nowMs())
		}
	}
	return nowFav
}

// RecordHistory appends the watch-history entry locally (deduping the
// episode pair, capping the list) and mirrors it remotely.
func (m *Manager) RecordHistory(userID string, h state.History) {
	h, err := m.local.AddHistory(h)
	if err != nil {
		m.log.Warn("add history failed", zap.String("movie", h.MovieSlug), zap.Error(err))
	}
	if userID != "" {
		m.pusher.History(state.HistoryRow{UserID: userID, History: h})
	}
}

// ClearHistory resets local history only. The remote copy is untouched and
// will repopulate this device on the next merge.
func (m *Manager) ClearHistory() {
	if err := m.local.ClearHistory(); err != nil {
		m.log.Warn("clear history failed", zap.Error(err))
	}
}

// Local exposes the local store for read-only UI queries.
func (m *Manager) Local() *localstore.Store {
	return m.local
}

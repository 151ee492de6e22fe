package sync

import (
	"github.com/example/movie-platform/internal/state"
)

// Watched-fraction window for a resumable entry. Both bounds are inclusive:
// below it the viewer barely started, above it they effectively finished.
const (
	resumeMinFraction = 0.05
	resumeMaxFraction = 0.90
)

// Resume picks the single best continue-watching candidate from a watch
// history: the most recently watched entry whose playback fraction sits in
// the resumable window. Entries with an unknown duration never qualify.
// Returns nil when nothing qualifies.
func Resume(history []state.History) *state.History {
	var best *state.History
	for i := range history {
		h := history[i]
		if h.DurationMs <= 0 {
			continue
		}
		frac := float64(h.PositionMs) / float64(h.DurationMs)
		if frac < resumeMinFraction || frac > resumeMaxFraction {
			continue
		}
		if best == nil || h.WatchedAtMs > best.WatchedAtMs {
			best = &history[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

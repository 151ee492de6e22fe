// Package remotestore is the client side of the per-user account store: three
// remote collections (progress, favorites, history) with read-all and
// upsert-by-key operations, plus favorite soft-deletion.
//
// Implementations return errors normally. The sync subsystem swallows them at
// the call site: remote unavailability must never interrupt a local write.
package remotestore

import (
	"context"

	"github.com/example/movie-platform/internal/state"
)

// RowStore exposes the remote collections of a single account store. Every
// operation is scoped to one user; implementations never touch another user's
// rows.
type RowStore interface {
	Progress(ctx context.Context, userID string) ([]state.ProgressRow, error)
	UpsertProgress(ctx context.Context, rows []state.ProgressRow) error

	Favorites(ctx context.Context, userID string) ([]state.FavoriteRow, error)
	UpsertFavorites(ctx context.Context, rows []state.FavoriteRow) error
	// MarkFavoriteDeleted sets the tombstone on an existing favorite row,
	// identified purely by key. The local row is typically already gone when
	// this is called.
	MarkFavoriteDeleted(ctx context.Context, userID, movieSlug string, deletedAtMs int64) error

	History(ctx context.Context, userID string) ([]state.HistoryRow, error)
	UpsertHistory(ctx context.Context, rows []state.HistoryRow) error
}

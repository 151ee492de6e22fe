package remotestore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/movie-platform/internal/state"
)

// Postgres is the production RowStore for deployments where the account
// store's Postgres is directly reachable. Upserts carry last-write-wins
// guards on the record clocks so replayed or raced pushes converge.
// Tables are described in schema.sql.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Progress(ctx context.Context, userID string) ([]state.ProgressRow, error) {
	q := `SELECT movie_slug, episode_slug, server_name, position_ms, duration_ms, updated_at_ms
	      FROM user_progress WHERE user_id = $1`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []state.ProgressRow
	for rows.Next() {
		r := state.ProgressRow{UserID: userID}
		if err := rows.Scan(&r.MovieSlug, &r.EpisodeSlug, &r.ServerName, &r.PositionMs, &r.DurationMs, &r.UpdatedAtMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) UpsertProgress(ctx context.Context, rows []state.ProgressRow) error {
	q := `
INSERT INTO user_progress (user_id, movie_slug, episode_slug, server_name, position_ms, duration_ms, updated_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, movie_slug)
DO UPDATE SET
  episode_slug  = EXCLUDED.episode_slug,
  server_name   = EXCLUDED.server_name,
  position_ms   = EXCLUDED.position_ms,
  duration_ms   = EXCLUDED.duration_ms,
  updated_at_ms = EXCLUDED.updated_at_ms
WHERE user_progress.updated_at_ms <= EXCLUDED.updated_at_ms`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, q, r.UserID, r.MovieSlug, r.EpisodeSlug, r.ServerName, r.PositionMs, r.DurationMs, r.UpdatedAtMs); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) Favorites(ctx context.Context, userID string) ([]state.FavoriteRow, error) {
	q := `SELECT movie_slug, name, thumb_url, year, episode_current, added_at_ms, deleted_at_ms
	      FROM user_favorites WHERE user_id = $1`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []state.FavoriteRow
	for rows.Next() {
		r := state.FavoriteRow{UserID: userID}
		if err := rows.Scan(&r.MovieSlug, &r.Name, &r.ThumbURL, &r.Year, &r.EpisodeCurrent, &r.AddedAtMs, &r.DeletedAtMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) UpsertFavorites(ctx context.Context, rows []state.FavoriteRow) error {
	q := `
INSERT INTO user_favorites (user_id, movie_slug, name, thumb_url, year, episode_current, added_at_ms, deleted_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, movie_slug)
DO UPDATE SET
  name            = EXCLUDED.name,
  thumb_url       = EXCLUDED.thumb_url,
  year            = EXCLUDED.year,
  episode_current = EXCLUDED.episode_current,
  added_at_ms     = EXCLUDED.added_at_ms,
  deleted_at_ms   = EXCLUDED.deleted_at_ms`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, q, r.UserID, r.MovieSlug, r.Name, r.ThumbURL, r.Year, r.EpisodeCurrent, r.AddedAtMs, r.DeletedAtMs); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) MarkFavoriteDeleted(ctx context.Context, userID, movieSlug string, deletedAtMs int64) error {
	q := `UPDATE user_favorites SET deleted_at_ms = $3 WHERE user_id = $1 AND movie_slug = $2`
	_, err := s.db.Exec(ctx, q, userID, movieSlug, deletedAtMs)
	return err
}

func (s *Postgres) History(ctx context.Context, userID string) ([]state.HistoryRow, error) {
	q := `SELECT movie_slug, episode_slug, movie_name, episode_name, thumb_url, position_ms, duration_ms, watched_at_ms
	      FROM user_history WHERE user_id = $1 ORDER BY watched_at_ms DESC LIMIT $2`
	rows, err := s.db.Query(ctx, q, userID, state.HistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []state.HistoryRow
	for rows.Next() {
		r := state.HistoryRow{UserID: userID}
		if err := rows.Scan(&r.MovieSlug, &r.EpisodeSlug, &r.MovieName, &r.EpisodeName, &r.ThumbURL, &r.PositionMs, &r.DurationMs, &r.WatchedAtMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) UpsertHistory(ctx context.Context, rows []state.HistoryRow) error {
	q := `
INSERT INTO user_history (user_id, movie_slug, episode_slug, movie_name, episode_name, thumb_url, position_ms, duration_ms, watched_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, movie_slug, episode_slug)
DO UPDATE SET
  movie_name    = EXCLUDED.movie_name,
  episode_name  = EXCLUDED.episode_name,
  thumb_url     = EXCLUDED.thumb_url,
  position_ms   = EXCLUDED.position_ms,
  duration_ms   = EXCLUDED.duration_ms,
  watched_at_ms = EXCLUDED.watched_at_ms
WHERE user_history.watched_at_ms <= EXCLUDED.watched_at_ms`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, q, r.UserID, r.MovieSlug, r.EpisodeSlug, r.MovieName, r.EpisodeName, r.ThumbURL, r.PositionMs, r.DurationMs, r.WatchedAtMs); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

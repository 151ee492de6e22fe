package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/internal/state"
	"github.com/example/movie-platform/internal/syncevents"
)

// Sink is the one-directional send behind the incremental push: a single
// mutated record travels local -> remote with no acknowledgment contract.
// Implementations may write the account store directly or hand the record to
// a message stream for a worker to apply.
type Sink interface {
	PushProgress(ctx context.Context, row state.ProgressRow) error
	PushFavoriteAdded(ctx context.Context, row state.FavoriteRow) error
	PushFavoriteRemoved(ctx context.Context, userID, movieSlug string, deletedAtMs int64) error
	PushHistory(ctx context.Context, row state.HistoryRow) error
}

// StoreSink writes each record straight to the account store.
type StoreSink struct {
	Store remotestore.RowStore
}

func (s StoreSink) PushProgress(ctx context.Context, row state.ProgressRow) error {
	return s.Store.UpsertProgress(ctx, []state.ProgressRow{row})
}

func (s StoreSink) PushFavoriteAdded(ctx context.Context, row state.FavoriteRow) error {
	return s.Store.UpsertFavorites(ctx, []state.FavoriteRow{row})
}

func (s StoreSink) PushFavoriteRemoved(ctx context.Context, userID, movieSlug string, deletedAtMs int64) error {
	return s.Store.MarkFavoriteDeleted(ctx, userID, movieSlug, deletedAtMs)
}

func (s StoreSink) PushHistory(ctx context.Context, row state.HistoryRow) error {
	return s.Store.UpsertHistory(ctx, []state.HistoryRow{row})
}

// NATSSink publishes each record as a sync event for the syncworker to apply.
type NATSSink struct {
	Pub *syncevents.Publisher
}

func (s NATSSink) PushProgress(_ context.Context, row state.ProgressRow) error {
	return s.Pub.Publish(syncevents.SubjectProgress,
		syncevents.ProgressEvent{Envelope: syncevents.NewEnvelope(), Row: row})
}

func (s NATSSink) PushFavoriteAdded(_ context.Context, row state.FavoriteRow) error {
	return s.Pub.Publish(syncevents.SubjectFavoriteAdded,
		syncevents.FavoriteAddedEvent{Envelope: syncevents.NewEnvelope(), Row: row})
}

func (s NATSSink) PushFavoriteRemoved(_ context.Context, userID, movieSlug string, deletedAtMs int64) error {
	return s.Pub.Publish(syncevents.SubjectFavoriteRemoved, syncevents.FavoriteRemovedEvent{
		Envelope: syncevents.NewEnvelope(), UserID: userID, MovieSlug: movieSlug, DeletedAtMs: deletedAtMs,
	})
}

func (s NATSSink) PushHistory(_ context.Context, row state.HistoryRow) error {
	return s.Pub.Publish(syncevents.SubjectHistory,
		syncevents.HistoryEvent{Envelope: syncevents.NewEnvelope(), Row: row})
}

// Pusher mirrors single mutated records to the sink without ever blocking or
// failing the caller: each push runs in its own goroutine with a deadline,
// and failures are logged at Warn. A nil *Pusher is a safe no-op, so callers
// never have to nil-check.
type Pusher struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration
	wg      stdsync.WaitGroup
}

func NewPusher(sink Sink, log *zap.Logger) *Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pusher{sink: sink, log: log, timeout: 10 * time.Second}
}

func (p *Pusher) Progress(row state.ProgressRow) {
	p.send("progress", func(ctx context.Context) error {
		return p.sink.PushProgress(ctx, row)
	})
}

func (p *Pusher) FavoriteAdded(row state.FavoriteRow) {
	p.send("favorite_added", func(ctx context.Context) error {
		return p.sink.PushFavoriteAdded(ctx, row)
	})
}

// FavoriteRemoved tombstones the remote row by key; the local row is already
// gone by the time this runs.
func (p *Pusher) FavoriteRemoved(userID, movieSlug string, deletedAtMs int64) {
	p.send("favorite_removed", func(ctx context.Context) error {
		return p.sink.PushFavoriteRemoved(ctx, userID, movieSlug, deletedAtMs)
	})
}

func (p *Pusher) History(row state.HistoryRow) {
	p.send("history", func(ctx context.Context) error {
		return p.sink.PushHistory(ctx, row)
	})
}

func (p *Pusher) send(kind string, fn func(ctx context.Context) error) {
	if p == nil || p.sink == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			p.log.Warn("incremental push dropped", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

// Flush waits for in-flight pushes; used on shutdown and in tests.
func (p *Pusher) Flush() {
	if p == nil {
		return
	}
	p.wg.Wait()
}

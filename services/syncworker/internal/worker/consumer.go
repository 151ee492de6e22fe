// Package worker applies published sync events to the account store. It is
// the consuming half of the NATS push path: devices publish mutations,
// this worker lands them in Postgres with at-most-once application per event.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/internal/state"
	"github.com/example/movie-platform/internal/syncevents"
)

const durableName = "syncworker"

type Config struct {
	NATS      *nats.Conn
	Store     remotestore.RowStore
	Processed remotestore.ProcessedLog
	Log       *zap.Logger

	BatchSize int
	MaxWait   time.Duration
}

// Run consumes sync events until ctx is done. Malformed or unapplicable
// events are Nak'd for redelivery; replays of already-processed events Ack
// without touching the store. Events are marked processed only after the
// store apply succeeds, so a Nak'd message stays applicable when it comes
// back around.
func (c *Config) Run(ctx context.Context) error {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Second
	}

	js, err := c.NATS.JetStream()
	if err != nil {
		return err
	}
	if err := syncevents.EnsureStream(js); err != nil {
		return err
	}
	sub, err := js.PullSubscribe("sync.>", durableName)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.BatchSize, nats.MaxWait(c.MaxWait))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			c.Log.Warn("fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, m := range msgs {
			if err := c.apply(ctx, m.Subject, m.Data); err != nil {
				c.Log.Warn("apply failed", zap.String("subject", m.Subject), zap.Error(err))
				if err := m.Nak(); err != nil {
					c.Log.Warn("nak failed", zap.Error(err))
				}
				continue
			}
			if err := m.Ack(); err != nil {
				c.Log.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

func (c *Config) apply(ctx context.Context, subject string, data []byte) error {
	switch subject {
	case syncevents.SubjectProgress:
		var ev syncevents.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode progress event: %w", err)
		}
		return c.applyOnce(ctx, ev.Envelope, subject, data, func() error {
			return c.Store.UpsertProgress(ctx, []state.ProgressRow{ev.Row})
		})

	case syncevents.SubjectFavoriteAdded:
		var ev syncevents.FavoriteAddedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode favorite add event: %w", err)
		}
		return c.applyOnce(ctx, ev.Envelope, subject, data, func() error {
			return c.Store.UpsertFavorites(ctx, []state.FavoriteRow{ev.Row})
		})

	case syncevents.SubjectFavoriteRemoved:
		var ev syncevents.FavoriteRemovedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode favorite removal event: %w", err)
		}
		return c.applyOnce(ctx, ev.Envelope, subject, data, func() error {
			return c.Store.MarkFavoriteDeleted(ctx, ev.UserID, ev.MovieSlug, ev.DeletedAtMs)
		})

	case syncevents.SubjectHistory:
		var ev syncevents.HistoryEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode history event: %w", err)
		}
		return c.applyOnce(ctx, ev.Envelope, subject, data, func() error {
			return c.Store.UpsertHistory(ctx, []state.HistoryRow{ev.Row})
		})

	default:
		return fmt.Errorf("unknown subject %q", subject)
	}
}

// applyOnce skips already-processed events and records the event id only
// after op succeeds. A failed op leaves the event unrecorded so the
// redelivery applies it; a crash between op and the record replays the op,
// which the store's clock guards absorb.
func (c *Config) applyOnce(ctx context.Context, env syncevents.Envelope, subject string, data []byte, op func() error) error {
	seen, err := c.Processed.Seen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("processed lookup: %w", err)
	}
	if seen {
		return nil
	}
	if err := op(); err != nil {
		return err
	}
	return c.Processed.MarkProcessed(ctx, env.EventID, subject, env.CreatedAt, data)
}

package remotestore

import (
	"context"
	"sync"
)

// ProcessedLog records consumed event ids so event replays skip the store.
// Consumers check Seen before applying and call MarkProcessed only after a
// successful apply; a failed apply leaves no record, so the redelivered
// message is applied again. The window between apply and mark means at-least-
// once application, which the store's clock guards absorb.
type ProcessedLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, subject, createdAt string, payload []byte) error
}

func (s *Postgres) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`, eventID).Scan(&seen)
	return seen, err
}

func (s *Postgres) MarkProcessed(ctx context.Context, eventID, subject, createdAt string, payload []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO processed_events (event_id, subject, created_at, payload) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, subject, createdAt, payload)
	return err
}

// MemoryProcessedLog is an in-memory ProcessedLog for tests.
type MemoryProcessedLog struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryProcessedLog() *MemoryProcessedLog {
	return &MemoryProcessedLog{seen: make(map[string]bool)}
}

func (l *MemoryProcessedLog) Seen(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[eventID], nil
}

func (l *MemoryProcessedLog) MarkProcessed(_ context.Context, eventID, _, _ string, _ []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[eventID] = true
	return nil
}

package syncevents

import (
	"time"

	"github.com/nats-io/nats.go"
)

// EnsureStream creates the sync event stream if it does not exist yet.
// Safe to call from both the publishing and the consuming side.
func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     Stream,
		Subjects: []string{"sync.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return err
	}
	return nil
}

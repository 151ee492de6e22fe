package syncevents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher publishes sync events to NATS JetStream.
type Publisher struct {
	js nats.JetStreamContext
}

// NewPublisher creates a Publisher using an existing JetStream context.
func NewPublisher(js nats.JetStreamContext) *Publisher {
	return &Publisher{js: js}
}

// NewEnvelope stamps a fresh event id and creation time.
func NewEnvelope() Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Publish marshals the event and publishes it synchronously so the caller
// learns whether the message reached the stream. Callers on fire-and-forget
// paths run this from a goroutine.
func (p *Publisher) Publish(subject string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, body)
	return err
}

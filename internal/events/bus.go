package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Event is a persisted domain event.
type Event struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (Event, error)
}

// DeliveryScheduler schedules background work for emitted events, such as
// queueing an e-invoice submission.
type DeliveryScheduler interface {
	Schedule(ctx context.Context, event Event) error
}

// Notifier reacts to emitted events (metrics, projections, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus persists domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Scheduler DeliveryScheduler
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured handlers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if !aggregateID.Valid {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	if b.Scheduler != nil {
		if schedErr := b.Scheduler.Schedule(ctx, ev); schedErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: schedule deliveries: %w", schedErr))
		}
	}
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

// encodePayload normalises the payload to a JSON document. Raw inputs are
// validated rather than re-encoded; anything else goes through json.Marshal.
func encodePayload(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(strings.TrimSpace(v))
	default:
		return json.Marshal(v)
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), raw...), nil
}

package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists domain events in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

// InsertDomainEvent appends one event row and returns it with its generated
// identifier and timestamp.
func (s *PgStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (Event, error) {
	const q = `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`
	var ev Event
	err := s.Pool.QueryRow(ctx, q, topic, aggregateID, payload).Scan(
		&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt,
	)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

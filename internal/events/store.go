package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/stationery-pos/internal/db/gen"
)

// Querier is the generated query set PGStore needs.
type Querier interface {
	InsertDomainEvent(ctx context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error)
	ListDomainEvents(ctx context.Context, aggregateID string) ([]dbgen.DomainEvent, error)
	ListRecentDomainEvents(ctx context.Context, arg dbgen.ListRecentDomainEventsParams) ([]dbgen.DomainEvent, error)
}

// PGStore keeps the event log in Postgres.
type PGStore struct {
	Q Querier
}

func (s PGStore) Append(ctx context.Context, ev Event) (Event, error) {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		return Event{}, fmt.Errorf("event id: %w", err)
	}
	row, err := s.Q.InsertDomainEvent(ctx, dbgen.InsertDomainEventParams{
		ID:          pgtype.UUID{Bytes: id, Valid: true},
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Payload:     ev.Payload,
		OccurredAt:  pgtype.Timestamptz{Time: ev.OccurredAt, Valid: true},
	})
	if err != nil {
		return Event{}, err
	}
	return fromRow(row), nil
}

// History returns the events of one aggregate, oldest first.
func (s PGStore) History(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := s.Q.ListDomainEvents(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Recent returns the latest events on topic, newest first.
func (s PGStore) Recent(ctx context.Context, topic string, limit int) ([]Event, error) {
	rows, err := s.Q.ListRecentDomainEvents(ctx, dbgen.ListRecentDomainEventsParams{Topic: topic, Limit: int32(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func fromRow(row dbgen.DomainEvent) Event {
	ev := Event{
		Topic:       row.Topic,
		AggregateID: row.AggregateID,
		Payload:     json.RawMessage(row.Payload),
		OccurredAt:  row.OccurredAt.Time,
	}
	if row.ID.Valid {
		ev.ID = uuid.UUID(row.ID.Bytes).String()
	}
	return ev
}

package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Channel is an outreach delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// EventStatus is the outcome of a send attempt.
type EventStatus string

const (
	EventStatusSent   EventStatus = "sent"
	EventStatusFailed EventStatus = "failed"
)

// Event is one row per attempted outreach send. Re-processing the same missed
// call within a dedupe window lands on the same row.
type Event struct {
	ID        uuid.UUID
	CallSid   string
	Channel   Channel
	Status    EventStatus
	DedupeKey string
	Payload   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists outreach attempts in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// UpsertEvent records a send attempt, idempotent on
// (call_sid, channel, dedupe_key).
func (s *Store) UpsertEvent(ctx context.Context, evt Event) error {
	if evt.CallSid == "" || evt.Channel == "" || evt.DedupeKey == "" {
		return fmt.Errorf("outreach: upsert event: call sid, channel and dedupe key required")
	}
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.Payload == nil {
		evt.Payload = map[string]string{}
	}
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("outreach: marshal payload: %w", err)
	}
	query := `
		INSERT INTO outreach_events (id, call_sid, channel, status, dedupe_key, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (call_sid, channel, dedupe_key) DO UPDATE
		SET status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, evt.ID, evt.CallSid, string(evt.Channel), string(evt.Status), evt.DedupeKey, payload); err != nil {
		return fmt.Errorf("outreach: upsert event: %w", err)
	}
	return nil
}

// EventsForCall lists attempts recorded for a call, oldest first.
func (s *Store) EventsForCall(ctx context.Context, callSid string) ([]Event, error) {
	query := `
		SELECT id, call_sid, channel, status, dedupe_key, payload, created_at, updated_at
		FROM outreach_events
		WHERE call_sid = $1
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, callSid)
	if err != nil {
		return nil, fmt.Errorf("outreach: events for call: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var evt Event
		var channel, status string
		var payload []byte
		if err := rows.Scan(&evt.ID, &evt.CallSid, &channel, &status, &evt.DedupeKey, &payload, &evt.CreatedAt, &evt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("outreach: scan event: %w", err)
		}
		evt.Channel = Channel(channel)
		evt.Status = EventStatus(status)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &evt.Payload); err != nil {
				return nil, fmt.Errorf("outreach: decode payload: %w", err)
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs, so tests can
// substitute a mock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists call and message lifecycle state in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// CallRecord is one row per provider call identifier.
type CallRecord struct {
	CallSid     string
	From        string
	To          string
	Direction   string
	Status      CallStatus
	StartTime   *time.Time
	EndTime     *time.Time
	TalkSeconds int
	Meta        map[string]string
	UpdatedAt   time.Time
}

// CallRecordFromEvent builds the persisted record for a normalized event.
func CallRecordFromEvent(evt CallEvent) CallRecord {
	return CallRecord{
		CallSid:     evt.CallSid,
		From:        evt.From,
		To:          evt.To,
		Direction:   evt.Direction,
		Status:      evt.Status,
		StartTime:   evt.StartTime,
		EndTime:     evt.EndTime,
		TalkSeconds: evt.TalkSeconds,
		Meta:        evt.Meta,
	}
}

// UpsertCall writes the latest lifecycle state for a call. Last write wins
// for every column; provider retries land on the same row.
func (s *Store) UpsertCall(ctx context.Context, rec CallRecord) error {
	if rec.CallSid == "" {
		return fmt.Errorf("telephony: upsert call: call sid required")
	}
	if rec.Meta == nil {
		rec.Meta = map[string]string{}
	}
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("telephony: marshal call meta: %w", err)
	}
	query := `
		INSERT INTO calls (
			call_sid, from_e164, to_e164, direction, status,
			start_time, end_time, talk_seconds, meta, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (call_sid) DO UPDATE
		SET from_e164 = EXCLUDED.from_e164,
			to_e164 = EXCLUDED.to_e164,
			direction = EXCLUDED.direction,
			status = EXCLUDED.status,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			talk_seconds = EXCLUDED.talk_seconds,
			meta = EXCLUDED.meta,
			updated_at = now()
	`
	_, err = s.pool.Exec(ctx, query, rec.CallSid, rec.From, rec.To, rec.Direction, string(rec.Status), rec.StartTime, rec.EndTime, rec.TalkSeconds, meta)
	if err != nil {
		return fmt.Errorf("telephony: upsert call: %w", err)
	}
	return nil
}

// GetCall loads the stored lifecycle record for a call sid.
func (s *Store) GetCall(ctx context.Context, callSid string) (CallRecord, error) {
	query := `
		SELECT call_sid, from_e164, to_e164, direction, status,
			start_time, end_time, talk_seconds, meta, updated_at
		FROM calls
		WHERE call_sid = $1
	`
	var rec CallRecord
	var status string
	var meta []byte
	err := s.pool.QueryRow(ctx, query, callSid).Scan(
		&rec.CallSid, &rec.From, &rec.To, &rec.Direction, &status,
		&rec.StartTime, &rec.EndTime, &rec.TalkSeconds, &meta, &rec.UpdatedAt,
	)
	if err != nil {
		return CallRecord{}, fmt.Errorf("telephony: get call: %w", err)
	}
	rec.Status = CallStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Meta); err != nil {
			return CallRecord{}, fmt.Errorf("telephony: decode call meta: %w", err)
		}
	}
	return rec, nil
}

// SmsStatusRecord is one row per outbound message sid, upserted with the
// latest delivery status.
type SmsStatusRecord struct {
	MessageSid   string
	Status       string
	ErrorCode    string
	ErrorMessage string
	Price        string
	PriceUnit    string
	UpdatedAt    time.Time
}

// SmsStatusFromEvent builds the persisted record for a normalized event.
func SmsStatusFromEvent(evt MessageEvent) SmsStatusRecord {
	return SmsStatusRecord{
		MessageSid:   evt.MessageSid,
		Status:       evt.Status,
		ErrorCode:    evt.ErrorCode,
		ErrorMessage: evt.ErrorMessage,
		Price:        evt.Price,
		PriceUnit:    evt.PriceUnit,
	}
}

// UpsertSmsStatus writes the latest delivery state for a message sid.
func (s *Store) UpsertSmsStatus(ctx context.Context, rec SmsStatusRecord) error {
	if rec.MessageSid == "" {
		return fmt.Errorf("telephony: upsert sms status: message sid required")
	}
	query := `
		INSERT INTO sms_delivery (
			message_sid, status, error_code, error_message, price, price_unit, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (message_sid) DO UPDATE
		SET status = EXCLUDED.status,
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			price = EXCLUDED.price,
			price_unit = EXCLUDED.price_unit,
			updated_at = now()
	`
	_, err := s.pool.Exec(ctx, query, rec.MessageSid, rec.Status, rec.ErrorCode, rec.ErrorMessage, rec.Price, rec.PriceUnit)
	if err != nil {
		return fmt.Errorf("telephony: upsert sms status: %w", err)
	}
	return nil
}

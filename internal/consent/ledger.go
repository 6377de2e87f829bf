package consent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the ledger needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger is an append-only log of consent-affecting messages. Current consent
// for a number is the most recent row; rows are never mutated in place.
type Ledger struct {
	pool PgxPool
}

func NewLedger(pool PgxPool) *Ledger {
	if pool == nil {
		return nil
	}
	return &Ledger{pool: pool}
}

// Record appends a consent row for the number.
func (l *Ledger) Record(ctx context.Context, e164 string, channel string, status Status, source string) error {
	if e164 == "" {
		return fmt.Errorf("consent: record: number required")
	}
	query := `
		INSERT INTO consent_records (id, e164, status, channel, source)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := l.pool.Exec(ctx, query, uuid.New(), e164, string(status), channel, source); err != nil {
		return fmt.Errorf("consent: record: %w", err)
	}
	return nil
}

// CurrentStatus returns the latest recorded consent for the number, or false
// when the number has never sent a consent keyword.
func (l *Ledger) CurrentStatus(ctx context.Context, e164 string) (Status, bool, error) {
	query := `
		SELECT status FROM consent_records
		WHERE e164 = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var status string
	if err := l.pool.QueryRow(ctx, query, e164).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("consent: current status: %w", err)
	}
	return Status(status), true, nil
}

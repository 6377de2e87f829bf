package telephony

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestUpsertCall(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	rec := CallRecord{
		CallSid:     "CA123",
		From:        "+15551234567",
		To:          "+15559990000",
		Direction:   "inbound",
		Status:      CallStatusNoAnswer,
		TalkSeconds: 0,
		Meta:        map[string]string{"CallSid": "CA123"},
	}

	mock.ExpectExec("INSERT INTO calls").
		WithArgs("CA123", "+15551234567", "+15559990000", "inbound", "no-answer", nilTime(), nilTime(), 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.UpsertCall(context.Background(), rec); err != nil {
		t.Fatalf("upsert call: %v", err)
	}

	// A second delivery of the same terminal status rides the conflict clause
	// and still reports one row affected.
	rec.Status = CallStatusCompleted
	rec.TalkSeconds = 185
	mock.ExpectExec("INSERT INTO calls").
		WithArgs("CA123", "+15551234567", "+15559990000", "inbound", "completed", nilTime(), nilTime(), 185, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.UpsertCall(context.Background(), rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertCallRequiresSid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	if err := store.UpsertCall(context.Background(), CallRecord{}); err == nil {
		t.Fatal("expected error for missing call sid")
	}
}

func TestGetCall(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	updated := time.Now()
	rows := pgxmock.NewRows([]string{
		"call_sid", "from_e164", "to_e164", "direction", "status",
		"start_time", "end_time", "talk_seconds", "meta", "updated_at",
	}).AddRow("CA123", "+15551234567", "+15559990000", "inbound", "no-answer", nilTime(), nilTime(), 0, []byte(`{"CallStatus":"no-answer"}`), updated)

	mock.ExpectQuery("SELECT call_sid, from_e164").
		WithArgs("CA123").
		WillReturnRows(rows)

	rec, err := store.GetCall(context.Background(), "CA123")
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if rec.Status != CallStatusNoAnswer {
		t.Errorf("unexpected status: %q", rec.Status)
	}
	if rec.Meta["CallStatus"] != "no-answer" {
		t.Errorf("unexpected meta: %+v", rec.Meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertSmsStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	rec := SmsStatusRecord{
		MessageSid:   "SM42",
		Status:       "failed",
		ErrorCode:    "30003",
		ErrorMessage: "Unreachable destination",
		Price:        "-0.0075",
		PriceUnit:    "USD",
	}

	mock.ExpectExec("INSERT INTO sms_delivery").
		WithArgs("SM42", "failed", "30003", "Unreachable destination", "-0.0075", "USD").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.UpsertSmsStatus(context.Background(), rec); err != nil {
		t.Fatalf("upsert sms status: %v", err)
	}

	if err := store.UpsertSmsStatus(context.Background(), SmsStatusRecord{}); err == nil {
		t.Fatal("expected error for missing message sid")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func nilTime() *time.Time { return nil }

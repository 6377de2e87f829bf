package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInternalDispatch(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		dispatcher := &stubDispatcher{}
		h := NewInternalDispatchHandler(dispatcher, nil)

		body := `{"call_sid":"CA123","from":"+15551234567"}`
		req := httptest.NewRequest(http.MethodPost, "/internal/outreach/dispatch", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if len(dispatcher.calls) != 1 {
			t.Fatalf("expected 1 dispatch, got %d", len(dispatcher.calls))
		}
		if dispatcher.calls[0].callSid != "CA123" || dispatcher.calls[0].from != "+15551234567" {
			t.Fatalf("unexpected dispatch: %+v", dispatcher.calls[0])
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		dispatcher := &stubDispatcher{}
		h := NewInternalDispatchHandler(dispatcher, nil)

		req := httptest.NewRequest(http.MethodPost, "/internal/outreach/dispatch", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(dispatcher.calls) != 0 {
			t.Fatal("malformed request must not dispatch")
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		dispatcher := &stubDispatcher{}
		h := NewInternalDispatchHandler(dispatcher, nil)

		req := httptest.NewRequest(http.MethodPost, "/internal/outreach/dispatch", strings.NewReader(`{"call_sid":"CA123"}`))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

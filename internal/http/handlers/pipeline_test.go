package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/relaydesk/telephony/internal/outreach"
	"github.com/relaydesk/telephony/internal/twilio"
)

type memoryOutreachStore struct {
	events []outreach.Event
}

func (s *memoryOutreachStore) UpsertEvent(_ context.Context, evt outreach.Event) error {
	s.events = append(s.events, evt)
	return nil
}

// One missed-call callback, wired through the real dispatcher, senders, and
// provider client: WhatsApp rejected by the provider, SMS accepted, both
// attempts logged under the same dedupe key.
func TestMissedCallPipelineWhatsAppFailsSmsDelivers(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.FormValue("To"), "whatsapp:") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":63016,"message":"channel could not find a matching template","status":400}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM900","status":"queued"}`))
	}))
	defer provider.Close()

	client := twilio.NewClient("AC1", "provider-token", nil, twilio.WithBaseURL(provider.URL))
	eventStore := &memoryOutreachStore{}

	whatsappSender := outreach.NewTwilioSender(outreach.SenderConfig{
		Channel:    outreach.ChannelWhatsApp,
		Client:     client,
		Store:      eventStore,
		From:       "+15550001111",
		BookingURL: "https://book.example.com",
	})
	smsSender := outreach.NewTwilioSender(outreach.SenderConfig{
		Channel:    outreach.ChannelSMS,
		Client:     client,
		Store:      eventStore,
		From:       "+15550001111",
		BookingURL: "https://book.example.com",
	})
	dispatcher := outreach.NewDispatcher(outreach.DispatcherConfig{
		Primary:  whatsappSender,
		Fallback: smsSender,
		Now: func() time.Time {
			return time.Date(2026, 8, 31, 14, 37, 12, 0, time.UTC)
		},
	})

	callStore := &stubCallStore{}
	h := NewCallStatusHandler(CallStatusConfig{
		Store:      callStore,
		Dispatcher: dispatcher,
		AuthToken:  testAuthToken,
	})

	form := url.Values{}
	form.Set("CallSid", "CA777")
	form.Set("From", "+15551234567")
	form.Set("To", "+15559990000")
	form.Set("Direction", "inbound")
	form.Set("CallStatus", "no-answer")

	req := signedRequest(t, "/webhooks/twilio/call-status", form, testAuthToken)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(callStore.records) != 1 {
		t.Fatalf("expected call upserted, got %d records", len(callStore.records))
	}
	if len(eventStore.events) != 2 {
		t.Fatalf("expected two outreach events, got %d: %+v", len(eventStore.events), eventStore.events)
	}

	first, second := eventStore.events[0], eventStore.events[1]
	if first.Channel != outreach.ChannelWhatsApp || first.Status != outreach.EventStatusFailed {
		t.Fatalf("expected whatsapp failure first, got %+v", first)
	}
	if !strings.Contains(first.Payload["error"], "63016") {
		t.Fatalf("expected provider error code in payload, got %+v", first.Payload)
	}
	if second.Channel != outreach.ChannelSMS || second.Status != outreach.EventStatusSent {
		t.Fatalf("expected sms delivery second, got %+v", second)
	}
	if second.Payload["message_id"] != "SM900" {
		t.Fatalf("expected provider message id, got %+v", second.Payload)
	}
	if first.CallSid != "CA777" || second.CallSid != "CA777" {
		t.Fatalf("expected both events tied to the call, got %q and %q", first.CallSid, second.CallSid)
	}
	if first.DedupeKey != "2026-08-31T14:00Z" || second.DedupeKey != first.DedupeKey {
		t.Fatalf("expected shared hour-bucket dedupe key, got %q and %q", first.DedupeKey, second.DedupeKey)
	}
}

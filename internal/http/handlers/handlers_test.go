package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/relaydesk/telephony/internal/consent"
	"github.com/relaydesk/telephony/internal/telephony"
)

// signedRequest builds a form-encoded webhook request carrying a valid
// provider signature for the URL httptest assigns (http://example.com<path>).
func signedRequest(t *testing.T, path string, form url.Values, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", computeTestSignature("http://example.com"+path, form, token))
	return req
}

func computeTestSignature(rawURL string, form url.Values, token string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(rawURL)
	for _, key := range keys {
		for _, value := range form[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type stubCallStore struct {
	records []telephony.CallRecord
	err     error
}

func (s *stubCallStore) UpsertCall(_ context.Context, rec telephony.CallRecord) error {
	s.records = append(s.records, rec)
	return s.err
}

type stubSmsStore struct {
	records []telephony.SmsStatusRecord
	err     error
}

func (s *stubSmsStore) UpsertSmsStatus(_ context.Context, rec telephony.SmsStatusRecord) error {
	s.records = append(s.records, rec)
	return s.err
}

type dispatched struct {
	callSid string
	from    string
}

type stubDispatcher struct {
	calls []dispatched
}

func (s *stubDispatcher) HandleMissedCall(_ context.Context, callSid, fromNumber string) {
	s.calls = append(s.calls, dispatched{callSid: callSid, from: fromNumber})
}

type recordedConsent struct {
	e164    string
	channel string
	status  consent.Status
	source  string
}

type stubConsentRecorder struct {
	records []recordedConsent
	err     error
}

func (s *stubConsentRecorder) Record(_ context.Context, e164 string, channel string, status consent.Status, source string) error {
	s.records = append(s.records, recordedConsent{e164: e164, channel: channel, status: status, source: source})
	return s.err
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

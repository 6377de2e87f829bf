// Package handlers contains the HTTP handlers for provider webhooks and
// internal endpoints. Provider-facing handlers share one contract: a bad
// signature is the only condition that returns a non-200; everything else is
// logged and acknowledged so the provider does not retry forever.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/relaydesk/telephony/internal/consent"
	"github.com/relaydesk/telephony/internal/telephony"
)

type callStore interface {
	UpsertCall(ctx context.Context, rec telephony.CallRecord) error
}

type smsStatusStore interface {
	UpsertSmsStatus(ctx context.Context, rec telephony.SmsStatusRecord) error
}

type missedCallDispatcher interface {
	HandleMissedCall(ctx context.Context, callSid, fromNumber string)
}

type consentRecorder interface {
	Record(ctx context.Context, e164 string, channel string, status consent.Status, source string) error
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

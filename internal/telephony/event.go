package telephony

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CallStatus is the provider-reported lifecycle state of a call.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"
)

// CallEvent is a normalized call status callback.
type CallEvent struct {
	CallSid     string
	From        string
	To          string
	Direction   string
	Status      CallStatus
	StartTime   *time.Time
	EndTime     *time.Time
	TalkSeconds int
	Meta        map[string]string
}

// MessageEvent is a normalized message status or inbound-message callback.
type MessageEvent struct {
	MessageSid   string
	From         string
	To           string
	Body         string
	Status       string
	ErrorCode    string
	ErrorMessage string
	Price        string
	PriceUnit    string
}

// Provider timestamps arrive as RFC 1123 with a numeric zone; older callbacks
// occasionally use RFC 3339.
var timeLayouts = []string{time.RFC1123Z, time.RFC3339, time.RFC1123}

// NormalizeCallEvent extracts a typed call event from a form-encoded webhook
// payload. Missing or malformed optional fields degrade to zero values; this
// function never fails.
func NormalizeCallEvent(form url.Values) CallEvent {
	evt := CallEvent{
		CallSid:     strings.TrimSpace(form.Get("CallSid")),
		From:        NormalizeE164(form.Get("From")),
		To:          NormalizeE164(form.Get("To")),
		Direction:   strings.ToLower(strings.TrimSpace(form.Get("Direction"))),
		Status:      CallStatus(strings.ToLower(strings.TrimSpace(form.Get("CallStatus")))),
		StartTime:   parseTime(form.Get("StartTime")),
		EndTime:     parseTime(form.Get("EndTime")),
		TalkSeconds: parseSeconds(form.Get("CallDuration")),
		Meta:        flattenForm(form),
	}
	return evt
}

// NormalizeMessageEvent extracts a typed message event from a form-encoded
// webhook payload. Never fails on malformed input.
func NormalizeMessageEvent(form url.Values) MessageEvent {
	return MessageEvent{
		MessageSid:   strings.TrimSpace(form.Get("MessageSid")),
		From:         NormalizeE164(form.Get("From")),
		To:           NormalizeE164(form.Get("To")),
		Body:         form.Get("Body"),
		Status:       strings.ToLower(strings.TrimSpace(form.Get("MessageStatus"))),
		ErrorCode:    strings.TrimSpace(form.Get("ErrorCode")),
		ErrorMessage: strings.TrimSpace(form.Get("ErrorMessage")),
		Price:        strings.TrimSpace(form.Get("Price")),
		PriceUnit:    strings.TrimSpace(form.Get("PriceUnit")),
	}
}

func parseSeconds(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

// flattenForm keeps the full provider payload for audit. Repeated keys keep
// the first value, matching url.Values.Get.
func flattenForm(form url.Values) map[string]string {
	if len(form) == 0 {
		return map[string]string{}
	}
	meta := make(map[string]string, len(form))
	for key := range form {
		meta[key] = form.Get(key)
	}
	return meta
}

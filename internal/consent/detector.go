package consent

import "strings"

// Status is the consent state recorded for a phone number.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Carrier keyword vocabularies. Matching is exact after trimming and
// lowercasing; "please stop" is a conversation, "STOP" is a command.
var (
	optOutKeywords = map[string]struct{}{
		"stop": {}, "stopall": {}, "unsubscribe": {}, "cancel": {}, "end": {}, "quit": {},
	}
	optInKeywords = map[string]struct{}{
		"start": {}, "unstop": {}, "yes": {},
	}
)

// Detector identifies opt-out/opt-in keywords in inbound message bodies.
type Detector struct{}

// NewDetector returns a keyword detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the consent status a message body maps to, and whether the
// body is a consent keyword at all.
func (d *Detector) Detect(body string) (Status, bool) {
	if d == nil {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(body))
	if _, ok := optOutKeywords[normalized]; ok {
		return StatusRevoked, true
	}
	if _, ok := optInKeywords[normalized]; ok {
		return StatusActive, true
	}
	return "", false
}

// SourceForStatus names the keyword source recorded with a consent row.
func SourceForStatus(status Status) string {
	if status == StatusRevoked {
		return "keyword_stop"
	}
	return "keyword_start"
}

package telephony

import (
	"regexp"
	"strings"
)

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WhatsAppAddress converts a phone number into the whatsapp:+E164 address
// convention used by the messaging provider. Values already carrying the
// prefix are normalized in place.
func WhatsAppAddress(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "whatsapp:")
	e164 := NormalizeE164(value)
	if e164 == "" {
		return ""
	}
	return "whatsapp:" + e164
}

func sanitizePhone(value string) string {
	if value == "" {
		return ""
	}
	digits := phoneDigitsRe.FindAllString(value, -1)
	return strings.Join(digits, "")
}

package telephony

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+15551234567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"(555) 123-4567", "+5551234567"},
		{" +1 555 123 4567 ", "+15551234567"},
		{"", ""},
		{"no digits", ""},
	}
	for _, tt := range tests {
		if got := NormalizeE164(tt.in); got != tt.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhatsAppAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+15551234567", "whatsapp:+15551234567"},
		{"whatsapp:+15551234567", "whatsapp:+15551234567"},
		{"555-123-4567", "whatsapp:+5551234567"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := WhatsAppAddress(tt.in); got != tt.want {
			t.Errorf("WhatsAppAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

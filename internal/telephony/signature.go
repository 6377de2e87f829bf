package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// VerifySignature checks a provider webhook signature: HMAC-SHA1 over the
// request URL concatenated with every form parameter key and value in
// lexicographic key order, base64 encoded. Returns false on any mismatch and
// never errors.
func VerifySignature(requestURL string, params url.Values, provided, authToken string) bool {
	if provided == "" || authToken == "" {
		return false
	}
	expected := computeSignature(buildSignaturePayload(requestURL, params), authToken)
	return hmac.Equal([]byte(provided), []byte(expected))
}

// ValidateWebhookRequest validates that an inbound request genuinely came from
// the telephony provider, reading the signature from X-Twilio-Signature.
func ValidateWebhookRequest(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	return VerifySignature(webhookURL, r.PostForm, signature, authToken)
}

// buildSignaturePayload creates the payload string for signature verification
func buildSignaturePayload(requestURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(requestURL)

	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	return payload.String()
}

// computeSignature computes the HMAC-SHA1 signature
func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// BuildAbsoluteURL reconstructs the literal URL the provider signed, honoring
// proxy forwarding headers. X-Forwarded-Uri takes precedence over the request
// path: the legacy alias shim rewrites the path but the provider signed the
// URL it actually called.
func BuildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	uri := r.Header.Get("X-Forwarded-Uri")
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, uri)
}

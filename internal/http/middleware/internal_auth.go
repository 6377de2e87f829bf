package middleware

import (
	"crypto/subtle"
	"net/http"
)

// InternalSecretHeader carries the shared secret on webhook-to-webhook calls.
const InternalSecretHeader = "X-Internal-Secret"

// InternalAuth gates internal endpoints behind a static shared secret.
// Mismatch or missing header yields 403 and no further processing.
func InternalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "internal endpoints disabled", http.StatusForbidden)
				return
			}
			provided := r.Header.Get(InternalSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

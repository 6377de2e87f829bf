package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/relaydesk/telephony/pkg/logging"
)

// Callers idle this long have fully refilled and can be forgotten.
const staleAfter = 10 * time.Minute

// RateLimiter tracks a token bucket per caller. Provider webhook retries
// arrive in bursts, so burst capacity matters more than the steady rate.
type RateLimiter struct {
	mu        sync.Mutex
	callers   map[string]*tokenBucket
	perSecond float64
	burst     float64
	lastSweep time.Time
}

type tokenBucket struct {
	remaining float64
	refilled  time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		callers:   make(map[string]*tokenBucket),
		perSecond: perSecond,
		burst:     float64(burst),
		lastSweep: time.Now(),
	}
}

// Allow consumes one token for the caller, crediting elapsed time first.
func (rl *RateLimiter) Allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweepLocked(now)

	b, ok := rl.callers[caller]
	if !ok {
		b = &tokenBucket{remaining: rl.burst, refilled: now}
		rl.callers[caller] = b
	}

	b.remaining += now.Sub(b.refilled).Seconds() * rl.perSecond
	if b.remaining > rl.burst {
		b.remaining = rl.burst
	}
	b.refilled = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

// sweepLocked evicts stale callers at most once per staleAfter window, so the
// map stays bounded without a background goroutine.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < staleAfter {
		return
	}
	rl.lastSweep = now
	for caller, b := range rl.callers {
		if now.Sub(b.refilled) > staleAfter {
			delete(rl.callers, caller)
		}
	}
}

// RateLimit rejects webhook floods per caller IP with 429 Too Many Requests.
// Rejections are logged with the offending IP and path.
func RateLimit(perSecond float64, burst int, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	limiter := NewRateLimiter(perSecond, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := r.RemoteAddr
			// Prefer the address resolved by chi's RealIP middleware.
			if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
				caller = realIP
			}
			if !limiter.Allow(caller) {
				logger.Warn("webhook rate limit exceeded", "remote_ip", caller, "path", r.URL.Path)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

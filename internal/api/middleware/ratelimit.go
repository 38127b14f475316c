package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	"github.com/kiranshivaraju/elasticbot/internal/cache"
)

const rateWindow = time.Hour

// RateLimit provides fixed-window hourly rate limiting via Redis, keyed by
// endpoint scope and requester fingerprint.
type RateLimit struct {
	cache   cache.Cache
	enabled bool
	now     func() time.Time
}

// NewRateLimit creates a new RateLimit middleware factory. When enabled is
// false every limiter it builds passes requests straight through.
func NewRateLimit(c cache.Cache, enabled bool) *RateLimit {
	return &RateLimit{cache: c, enabled: enabled, now: time.Now}
}

// Limit allows perHour requests per requester to the wrapped handler.
// Requests without a fingerprint, and all requests while the cache is
// failing, are let through.
func (rl *RateLimit) Limit(scope string, perHour int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rl.enabled || perHour <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fp, ok := GetFingerprint(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			now := rl.now()
			bucket := now.Unix() / int64(rateWindow/time.Second)
			reset := time.Unix((bucket+1)*int64(rateWindow/time.Second), 0)

			count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(scope, fp, bucket), reset.Sub(now)+time.Minute)
			if err != nil {
				slog.Warn("rate limit check failed, allowing request", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := perHour - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perHour))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if count > int64(perHour) {
				retry := int(reset.Sub(now).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				response.Error(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"Rate limit exceeded: "+strconv.Itoa(perHour)+" requests per hour", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

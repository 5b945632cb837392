package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiter admits a request now or reports how long the caller should
// wait before retrying.
type rateLimiter interface {
	Allow() (bool, time.Duration)
}

// tokenBucket shares one bucket between all clients.
type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucket(ratePerSecond float64, burst int) *tokenBucket {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (b *tokenBucket) Allow() (bool, time.Duration) {
	if b == nil || b.limiter == nil {
		return true, 0
	}

	res := b.limiter.Reserve()
	if !res.OK() {
		return false, time.Second
	}
	delay := res.Delay()
	if delay == 0 {
		return true, 0
	}
	// Hand the token back; the request is rejected, not queued.
	res.Cancel()
	return false, delay
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := limiter.Allow()
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		seconds := retryAfterSeconds(retryAfter)
		loggerFromContext(r.Context()).Warn("request rate limited",
			zap.String("path", r.URL.Path),
			zap.Int("retry_after_seconds", seconds),
		)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, retry the load shortly")
	})
}

// retryAfterSeconds rounds up to whole seconds, with a floor of one.
func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

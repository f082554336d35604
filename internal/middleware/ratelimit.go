package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"teamTracker/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idleAfter is how long a client may stay quiet before its limiter is dropped.
const idleAfter = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit allows each client IP rpm requests per minute, with bursts of
// up to rpm.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	var (
		mtx       sync.Mutex
		visitors  = make(map[string]*visitor)
		lastSweep = time.Now()
		every     = rate.Every(time.Minute / time.Duration(max(rpm, 1)))
	)

	get := func(ip string, now time.Time) *rate.Limiter {
		mtx.Lock()
		defer mtx.Unlock()

		if now.Sub(lastSweep) > idleAfter {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > idleAfter {
					delete(visitors, k)
				}
			}
			lastSweep = now
		}

		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, rpm)}
			visitors[ip] = v
		}
		v.lastSeen = now
		return v.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()
			limiter := get(ip, now)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))

			res := limiter.ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)
				retryAfter := int(math.Ceil(delay.Seconds()))

				logger.FromContext(r.Context()).Warn("HTTP: Rate limit exceeded",
					zap.Int("retry_after", retryAfter))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests. Try again later.",
					"retry_after": retryAfter,
					"request_id":  GetRequestID(r.Context()),
				})
				return
			}

			remaining := int(limiter.TokensAt(now))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

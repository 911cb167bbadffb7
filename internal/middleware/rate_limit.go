package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/limiter"
	"go.uber.org/zap"
)

// KeyExtractor derives the rate limiting identifier from a request
type KeyExtractor func(*http.Request) string

// RateLimit returns an HTTP middleware that records every request against rl
// and rejects it with 429 Too Many Requests once the identifier returned by
// keyExtractor has reached the threshold.
//
// When the counter store fails, failOpen decides the outcome: true lets the
// request through, false answers 503 Service Unavailable.
//
// Example: Rate limit by IP address
//
//	guard := middleware.RateLimit(rl, middleware.IPKeyExtractor, true, logger)
//	router.Use(guard)
func RateLimit(rl *limiter.RateLimiter, keyExtractor KeyExtractor, failOpen bool, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)

			decision, err := rl.Check(r.Context(), key)
			if err != nil {
				logger.Error("rate limiter check failed",
					zap.String("namespace", rl.Namespace()),
					zap.String("key", key),
					zap.Error(err),
				)
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Threshold, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining(), 10))

			if decision.Exceeded {
				logger.Debug("request rate limited",
					zap.String("namespace", rl.Namespace()),
					zap.String("key", key),
					zap.Int64("count", decision.Count),
				)
				w.Header().Set("Retry-After", strconv.FormatInt(int64(decision.Interval/time.Second), 10))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyExtractor extracts the client IP address from the request.
// The first X-Forwarded-For entry wins for proxied requests; otherwise the
// host part of RemoteAddr is used.
func IPKeyExtractor(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		client, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(client)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserIDKeyExtractor returns a key extractor that uses a custom header for user identification.
// Requests without the header fall back to the client IP.
func UserIDKeyExtractor(headerName string) KeyExtractor {
	return func(r *http.Request) string {
		if userID := r.Header.Get(headerName); userID != "" {
			return userID
		}
		return IPKeyExtractor(r)
	}
}

// PathKeyExtractor combines the client IP with the request path so each
// endpoint is limited separately.
func PathKeyExtractor(r *http.Request) string {
	return IPKeyExtractor(r) + ":" + r.URL.Path
}

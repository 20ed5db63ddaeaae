package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anugrahsoft/chatstream/internal/metrics"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// RateLimiter throttles message posting per user. It requires Redis; when no
// Redis store is configured (development) it passes everything through.
// Redis errors also fail open: losing rate limiting is preferable to
// blocking chat.
type RateLimiter struct {
	redis     *store.RedisStore
	limit     int
	whitelist map[string]bool
	logger    zerolog.Logger
}

// NewRateLimiter creates a rate limiter allowing limit posts per minute per
// user. Handles in whitelist are exempt.
func NewRateLimiter(redis *store.RedisStore, limit int, whitelist []string, logger zerolog.Logger) *RateLimiter {
	wl := make(map[string]bool, len(whitelist))
	for _, h := range whitelist {
		wl[h] = true
	}
	return &RateLimiter{redis: redis, limit: limit, whitelist: wl, logger: logger}
}

// LimitPosts is applied to post endpoints, after RequireUser.
func (l *RateLimiter) LimitPosts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		user := GetUserFromContext(r.Context())
		if user == nil || l.whitelist[user.Handle] {
			next.ServeHTTP(w, r)
			return
		}

		n, err := l.redis.IncrPostCount(r.Context(), user.ID)
		if err != nil {
			l.logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if n > int64(l.limit) {
			metrics.RateLimitHits.WithLabelValues("post").Inc()
			w.Header().Set("Retry-After", "60")
			http.Error(w, "too many messages, slow down", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

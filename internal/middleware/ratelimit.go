package middleware

import (
	"go-cms-app/internal/config"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client address. The number of
// tracked clients is bounded; the least recently seen client is evicted first.
type RateLimiter struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
	rate    rate.Limit
	burst   int
}

// NewRateLimiter creates a RateLimiter from the configuration.
func NewRateLimiter(cfg config.RateLimitConfig) (*RateLimiter, error) {
	size := cfg.MaxClients
	if size <= 0 {
		size = 10000
	}
	clients, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		clients: clients,
		rate:    rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
	}, nil
}

// limiter returns the bucket for key, creating one if needed.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.clients.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.clients.Add(key, l)
	return l
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Tracked returns how many clients currently have a bucket.
func (rl *RateLimiter) Tracked() int {
	return rl.clients.Len()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

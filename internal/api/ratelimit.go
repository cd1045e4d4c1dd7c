package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/juju/ratelimit"

	"pharmapos/m/internal/logging"
)

// RateLimiter hands each client a token bucket shared by the mutating sale
// routes.
type RateLimiter struct {
	rate     float64
	capacity int64
	clients  map[string]*ratelimit.Bucket
	mu       sync.RWMutex
}

func NewRateLimiter(rate float64, capacity int64) *RateLimiter {
	if rate <= 0 {
		rate = 5
	}
	if capacity <= 0 {
		capacity = 20
	}
	return &RateLimiter{rate: rate, capacity: capacity, clients: make(map[string]*ratelimit.Bucket)}
}

func (rl *RateLimiter) bucket(client string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[client]
	rl.mu.RUnlock()
	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, exists = rl.clients[client]; !exists {
		bucket = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
		rl.clients[client] = bucket
	}
	return bucket
}

// Prune drops clients whose bucket has refilled completely.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, client)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}
		bucket := rl.bucket(client)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		if bucket.TakeAvailable(1) < 1 {
			logging.Warn("rate limit exceeded", "client", client, "path", r.URL.Path)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// Limiter exposes the sale rate limiter so idle buckets can be pruned.
func (h *Handler) Limiter() *RateLimiter {
	return h.limiter
}

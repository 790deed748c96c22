package ports

import (
	"context"
	"time"
)

// RateLimitRepository provides the single atomic primitive rate limiting
// is built on. It abstracts storage (e.g., Redis) and owns the window
// boundary arithmetic; implementations must be concurrency-safe and must
// never split the increment and the read into separate operations.
type RateLimitRepository interface {
	// IncrementWindow atomically increments the counter for
	// (route, fingerprint) in the current fixed window and ensures the key
	// expires after ttl. Returns the updated count and the window start.
	IncrementWindow(ctx context.Context, route, fingerprint string, window time.Duration, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimitDecision is the limiter's verdict for one request.
type RateLimitDecision struct {
	Allowed bool      `json:"allowed"`
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// RateLimiterService gates requests per (route, client fingerprint)
// window. Implementations derive a non-reversible fingerprint from the
// opaque client identity and MUST be safe for concurrent use. A store
// failure is returned as an error, never silently converted to an allow.
type RateLimiterService interface {
	Allow(ctx context.Context, clientIdentity []byte, route string) (*RateLimitDecision, error)
}

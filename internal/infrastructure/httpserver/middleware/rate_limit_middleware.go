package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/cafescout/cafescout/internal/application/services"
	"github.com/cafescout/cafescout/internal/core/ports"
)

// RateLimitMiddleware gates each route per client fingerprint. A local
// token bucket sheds abusive bursts without a Redis round trip; requests
// that pass it are counted against the shared fixed window. Store errors
// fail closed: unmetered traffic defeats the point of the limiter.
type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiterService
	burstRate   rate.Limit
	logger      *logrus.Logger

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiterService, burstPerSecond float64, logger *logrus.Logger) *RateLimitMiddleware {
	if burstPerSecond <= 0 {
		burstPerSecond = 10
	}
	return &RateLimitMiddleware{
		rateLimiter: rateLimiter,
		burstRate:   rate.Limit(burstPerSecond),
		logger:      logger,
		buckets:     make(map[string]*rate.Limiter),
	}
}

// clientIdentity resolves the opaque identity bytes for a request: the
// API key when the caller presents one, the remote address otherwise.
func clientIdentity(c echo.Context) []byte {
	if key := c.Request().Header.Get("X-API-Key"); key != "" {
		return []byte(key)
	}
	return []byte(c.RealIP())
}

func (r *RateLimitMiddleware) bucketFor(fingerprint string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[fingerprint]
	if !ok {
		burst := int(r.burstRate)
		if burst < 1 {
			burst = 1
		}
		b = rate.NewLimiter(r.burstRate, burst)
		r.buckets[fingerprint] = b
	}
	return b
}

func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := clientIdentity(c)
			fp := services.Fingerprint(identity)

			if !r.bucketFor(fp).Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "burst limit exceeded")
			}

			decision, err := r.rateLimiter.Allow(c.Request().Context(), identity, c.Path())
			if err != nil {
				if r.logger != nil {
					r.logger.WithError(err).WithField("route", c.Path()).Error("rate limiter unavailable; denying request (fail-closed)")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiter unavailable")
			}

			remaining := decision.Limit - decision.Used
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			c.Response().Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

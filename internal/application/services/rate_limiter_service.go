package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// RateLimiterService gates requests per (route, client fingerprint) using
// a fixed window counted atomically in the shared store. It is fail-closed:
// a store error is propagated, never converted into an allow, because a
// limiter that fails open stops bounding upstream cost exactly when the
// backend is in trouble.
type RateLimiterService struct {
	repo         ports.RateLimitRepository
	defaultLimit int
	routeLimits  map[string]int
	window       time.Duration
	logger       *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
// RouteLimits overrides the default per route identifier.
type RateLimiterConfig struct {
	DefaultRequestsPerWindow int
	RouteLimits              map[string]int
	Window                   time.Duration
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	dl := 60
	w := time.Minute
	var rl map[string]int
	if cfg != nil {
		if cfg.DefaultRequestsPerWindow > 0 {
			dl = cfg.DefaultRequestsPerWindow
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		rl = cfg.RouteLimits
	}
	return &RateLimiterService{repo: repo, defaultLimit: dl, routeLimits: rl, window: w, logger: logger}
}

// Fingerprint derives the stable, non-reversible client key used for
// counting. The raw identity is never stored or logged.
func Fingerprint(clientIdentity []byte) string {
	sum := sha256.Sum256(clientIdentity)
	return hex.EncodeToString(sum[:])
}

func (s *RateLimiterService) Allow(ctx context.Context, clientIdentity []byte, route string) (*ports.RateLimitDecision, error) {
	limit := s.defaultLimit
	if l, ok := s.routeLimits[route]; ok && l > 0 {
		limit = l
	}

	fp := Fingerprint(clientIdentity)
	ttl := s.window * 2 // retain overlap window
	used, windowStart, err := s.repo.IncrementWindow(ctx, route, fp, s.window, ttl)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"route": route, "fingerprint": fp}).WithError(err).Error("rate limiter: failed to increment window")
		}
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "rate limit counter unavailable", err)
	}
	reset := windowStart.Add(s.window)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"route": route, "fingerprint": fp, "used": used, "limit": limit}).Debug("rate limiter window state")
	}
	return &ports.RateLimitDecision{
		Allowed: used <= limit,
		Used:    used,
		Limit:   limit,
		ResetAt: reset,
	}, nil
}

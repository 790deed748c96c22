package geo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
)

const (
	// MinPrecision and MaxPrecision bound the coordinate rounding digits.
	// Precision is the central cost/accuracy knob: fewer digits merge more
	// physically-distinct queries into one cache bucket (cheaper, coarser),
	// more digits tighten correctness at the price of extra upstream calls.
	MinPrecision = 2
	MaxPrecision = 5
)

// Query is an inbound nearby search. RadiusM is nil when the client did
// not ask for a specific radius.
type Query struct {
	Lat     float64
	Lng     float64
	RadiusM *float64
}

// Validate rejects malformed coordinates and radii before any store or
// upstream call is made.
func (q Query) Validate() error {
	if math.IsNaN(q.Lat) || math.IsInf(q.Lat, 0) || q.Lat < -90 || q.Lat > 90 {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("latitude %v out of range [-90, 90]", q.Lat))
	}
	if math.IsNaN(q.Lng) || math.IsInf(q.Lng, 0) || q.Lng < -180 || q.Lng > 180 {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("longitude %v out of range [-180, 180]", q.Lng))
	}
	if q.RadiusM != nil && (math.IsNaN(*q.RadiusM) || math.IsInf(*q.RadiusM, 0) || *q.RadiusM <= 0) {
		return apperr.New(apperr.KindInvalidInput, "radius must be a positive number of meters")
	}
	return nil
}

// ClampPrecision saturates a configured precision into [MinPrecision, MaxPrecision].
func ClampPrecision(p int) int {
	if p < MinPrecision {
		return MinPrecision
	}
	if p > MaxPrecision {
		return MaxPrecision
	}
	return p
}

// ClampRadius resolves the requested radius against the configured bounds.
// A nil request uses def; out-of-bounds values saturate silently.
// Idempotent: clamping an already-clamped value is a no-op.
func ClampRadius(requested *float64, min, max, def float64) float64 {
	r := def
	if requested != nil {
		r = *requested
	}
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}

// RoundCoord rounds a coordinate to precision decimal digits using
// round-half-away-from-zero semantics.
func RoundCoord(v float64, precision int) float64 {
	shift := math.Pow(10, float64(ClampPrecision(precision)))
	return math.Round(v*shift) / shift
}

// CacheKey derives the bucket key for a query. It is pure: identical
// rounded coordinates and clamped radius always produce identical keys.
func CacheKey(lat, lng float64, radiusM float64, precision int) string {
	p := ClampPrecision(precision)
	return "nearby:" + strconv.FormatFloat(RoundCoord(lat, p), 'f', p, 64) +
		":" + strconv.FormatFloat(RoundCoord(lng, p), 'f', p, 64) +
		":r=" + strconv.FormatFloat(radiusM, 'f', -1, 64)
}

// CacheEntry is one cached bucket: the identifier set returned by the
// provider for (rounded lat, rounded lng, radius) and its freshness window.
// Entries are never deleted; a stale entry is overwritten in place the next
// time its bucket misses.
type CacheEntry struct {
	Key       string    `json:"key" db:"cache_key"`
	Lat       float64   `json:"lat" db:"lat"`
	Lng       float64   `json:"lng" db:"lng"`
	RadiusM   float64   `json:"radius_m" db:"radius_m"`
	PlaceIDs  []string  `json:"place_ids" db:"place_ids"`
	FetchedAt time.Time `json:"fetched_at" db:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Fresh reports whether the entry's TTL has not yet lapsed.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Servable reports whether the entry may satisfy a lookup. An empty
// identifier set is never servable: cached emptiness is indistinguishable
// from a transient provider hiccup, so policy favors a retry upstream.
func (e *CacheEntry) Servable(now time.Time) bool {
	return e.Fresh(now) && len(e.PlaceIDs) > 0
}

package geo_test

import (
	"math"
	"testing"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/domain/geo"
)

func TestCacheKeyDeterministic(t *testing.T) {
	k1 := geo.CacheKey(37.7749, -122.4194, 1500, 3)
	k2 := geo.CacheKey(37.7749, -122.4194, 1500, 3)
	if k1 != k2 {
		t.Fatalf("same inputs produced different keys: %q vs %q", k1, k2)
	}
	if k1 != "nearby:37.775:-122.419:r=1500" {
		t.Fatalf("unexpected key format: %q", k1)
	}
}

func TestCacheKeyBucketsMergeByPrecision(t *testing.T) {
	// 37.7749 and 37.7751 both round to 37.775 at precision 3
	a := geo.CacheKey(37.7749, -122.4194, 1500, 3)
	b := geo.CacheKey(37.7751, -122.4194, 1500, 3)
	if a != b {
		t.Fatalf("expected same bucket at precision 3: %q vs %q", a, b)
	}

	a4 := geo.CacheKey(37.7749, -122.4194, 1500, 4)
	b4 := geo.CacheKey(37.7751, -122.4194, 1500, 4)
	if a4 == b4 {
		t.Fatalf("expected distinct buckets at precision 4, both %q", a4)
	}

	// coarser precision merges even earlier
	a2 := geo.CacheKey(37.771, -122.4194, 1500, 2)
	b2 := geo.CacheKey(37.774, -122.4194, 1500, 2)
	if a2 != b2 {
		t.Fatalf("expected same bucket at precision 2: %q vs %q", a2, b2)
	}
}

func TestClampRadius(t *testing.T) {
	low := 100.0
	high := 9000.0
	mid := 1234.0

	if got := geo.ClampRadius(&low, 200, 5000, 1500); got != 200 {
		t.Fatalf("clamp(100) = %v, want 200", got)
	}
	if got := geo.ClampRadius(&high, 200, 5000, 1500); got != 5000 {
		t.Fatalf("clamp(9000) = %v, want 5000", got)
	}
	if got := geo.ClampRadius(&mid, 200, 5000, 1500); got != 1234 {
		t.Fatalf("clamp(1234) = %v, want 1234", got)
	}
	if got := geo.ClampRadius(nil, 200, 5000, 1500); got != 1500 {
		t.Fatalf("clamp(nil) = %v, want default 1500", got)
	}

	// idempotent: clamping an already-clamped value is a no-op
	once := geo.ClampRadius(&high, 200, 5000, 1500)
	twice := geo.ClampRadius(&once, 200, 5000, 1500)
	if once != twice {
		t.Fatalf("clamp not idempotent: %v vs %v", once, twice)
	}
}

func TestClampPrecision(t *testing.T) {
	cases := map[int]int{1: 2, 2: 2, 3: 3, 5: 5, 6: 5, 0: 2, -1: 2}
	for in, want := range cases {
		if got := geo.ClampPrecision(in); got != want {
			t.Fatalf("ClampPrecision(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRoundCoordHalfAwayFromZero(t *testing.T) {
	// 0.125 is exactly representable, so the tie is real
	if got := geo.RoundCoord(0.125, 2); got != 0.13 {
		t.Fatalf("RoundCoord(0.125, 2) = %v, want 0.13", got)
	}
	if got := geo.RoundCoord(-0.125, 2); got != -0.13 {
		t.Fatalf("RoundCoord(-0.125, 2) = %v, want -0.13", got)
	}
	if got := geo.RoundCoord(37.7749, 3); got != 37.775 {
		t.Fatalf("RoundCoord(37.7749, 3) = %v, want 37.775", got)
	}
}

func TestQueryValidate(t *testing.T) {
	bad := []geo.Query{
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, q := range bad {
		err := q.Validate()
		if err == nil {
			t.Fatalf("expected validation error for %+v", q)
		}
		if apperr.KindOf(err) != apperr.KindInvalidInput {
			t.Fatalf("expected invalid_input kind, got %q", apperr.KindOf(err))
		}
	}

	neg := -5.0
	q := geo.Query{Lat: 0, Lng: 0, RadiusM: &neg}
	if q.Validate() == nil {
		t.Fatal("expected error for negative radius")
	}

	r := 500.0
	ok := geo.Query{Lat: 48.8566, Lng: 2.3522, RadiusM: &r}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCacheEntryFreshness(t *testing.T) {
	now := time.Now()
	fresh := &geo.CacheEntry{PlaceIDs: []string{"a"}, ExpiresAt: now.Add(time.Hour)}
	stale := &geo.CacheEntry{PlaceIDs: []string{"a"}, ExpiresAt: now.Add(-time.Second)}
	empty := &geo.CacheEntry{PlaceIDs: nil, ExpiresAt: now.Add(time.Hour)}

	if !fresh.Servable(now) {
		t.Fatal("fresh non-empty entry should be servable")
	}
	if stale.Servable(now) {
		t.Fatal("stale entry must not be servable")
	}
	if empty.Servable(now) {
		t.Fatal("fresh entry with empty id set must not be servable")
	}
}

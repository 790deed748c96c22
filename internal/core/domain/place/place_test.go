package place_test

import (
	"testing"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/place"
)

func TestParsePriceTier(t *testing.T) {
	cases := map[string]place.PriceTier{
		"free":                       place.PriceFree,
		"inexpensive":                place.PriceInexpensive,
		"moderate":                   place.PriceModerate,
		"expensive":                  place.PriceExpensive,
		"very_expensive":             place.PriceVeryExpensive,
		"PRICE_LEVEL_MODERATE":       place.PriceModerate,
		"PRICE_LEVEL_VERY_EXPENSIVE": place.PriceVeryExpensive,
	}
	for in, want := range cases {
		got, ok := place.ParsePriceTier(in)
		if !ok || got != want {
			t.Fatalf("ParsePriceTier(%q) = (%v, %v), want (%v, true)", in, got, ok, want)
		}
	}

	for _, in := range []string{"", "cheap", "luxury", "5"} {
		if _, ok := place.ParsePriceTier(in); ok {
			t.Fatalf("ParsePriceTier(%q) should not be recognized", in)
		}
	}
}

func f(v float64) *float64 { return &v }

func TestFromRawDropsUnusableRecords(t *testing.T) {
	now := time.Now()

	if _, ok := place.FromRaw(place.RawPlace{Name: "No ID", Lat: f(1), Lng: f(2)}, now); ok {
		t.Fatal("record without external id must be dropped")
	}
	if _, ok := place.FromRaw(place.RawPlace{ExternalID: "x", Name: "No coords"}, now); ok {
		t.Fatal("record without coordinates must be dropped")
	}
	if _, ok := place.FromRaw(place.RawPlace{ExternalID: "x", Lat: f(1)}, now); ok {
		t.Fatal("record with only one coordinate must be dropped")
	}
}

func TestFromRawNormalizes(t *testing.T) {
	now := time.Now()
	count := 42

	p, ok := place.FromRaw(place.RawPlace{
		ExternalID:  "abc",
		Lat:         f(48.8566),
		Lng:         f(2.3522),
		Rating:      f(4.3),
		RatingCount: &count,
		PriceLevel:  "moderate",
		Types:       []string{"cafe", "bakery"},
	}, now)
	if !ok {
		t.Fatal("expected usable record")
	}
	if p.Name != "Unknown" {
		t.Fatalf("missing name should map to Unknown, got %q", p.Name)
	}
	if p.PriceTier == nil || *p.PriceTier != place.PriceModerate {
		t.Fatalf("expected moderate tier, got %v", p.PriceTier)
	}
	if p.RatingCount == nil || *p.RatingCount != 42 {
		t.Fatalf("expected rating count 42, got %v", p.RatingCount)
	}
	if !p.FetchedAt.Equal(now) {
		t.Fatal("fetched_at should be the normalization time")
	}
}

func TestFromRawUnknownTierStaysAbsent(t *testing.T) {
	p, ok := place.FromRaw(place.RawPlace{
		ExternalID: "abc",
		Name:       "Cafe",
		Lat:        f(1),
		Lng:        f(2),
		PriceLevel: "mystery",
	}, time.Now())
	if !ok {
		t.Fatal("expected usable record")
	}
	if p.PriceTier != nil {
		t.Fatalf("unrecognized tier must stay absent, got %v (never 0)", *p.PriceTier)
	}
	if p.Rating != nil || p.RatingCount != nil || p.Address != nil {
		t.Fatal("absent optional fields must stay nil")
	}
}

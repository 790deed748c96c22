package place

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Place is a durable point of interest fetched from the upstream provider.
// ExternalID is the provider's identifier and is globally unique; upserts
// key on it so repeated fetches never duplicate rows.
type Place struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ExternalID  string     `json:"external_id" db:"external_id"`
	Name        string     `json:"name" db:"name"`
	Address     *string    `json:"address,omitempty" db:"address"`
	Lat         float64    `json:"lat" db:"lat"`
	Lng         float64    `json:"lng" db:"lng"`
	Rating      *float64   `json:"rating,omitempty" db:"rating"`
	RatingCount *int       `json:"rating_count,omitempty" db:"rating_count"`
	PriceTier   *PriceTier `json:"price_tier,omitempty" db:"price_tier"`
	Tags        []string   `json:"tags,omitempty" db:"tags"`
	FetchedAt   time.Time  `json:"fetched_at" db:"fetched_at"`
}

// PriceTier is the normalized price ordinal, 0 (free) through 4 (very expensive).
type PriceTier int

const (
	PriceFree PriceTier = iota
	PriceInexpensive
	PriceModerate
	PriceExpensive
	PriceVeryExpensive
)

// ParsePriceTier maps a provider price-level string to its ordinal.
// Both the bare form ("moderate") and the prefixed enum form
// ("PRICE_LEVEL_MODERATE") are recognized. Unknown or empty strings
// report ok=false; callers must treat that as "no tier", never as free.
func ParsePriceTier(s string) (PriceTier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "price_level_")
	switch s {
	case "free":
		return PriceFree, true
	case "inexpensive":
		return PriceInexpensive, true
	case "moderate":
		return PriceModerate, true
	case "expensive":
		return PriceExpensive, true
	case "very_expensive":
		return PriceVeryExpensive, true
	default:
		return 0, false
	}
}

// RawPlace is a provider record before normalization. Optional provider
// fields stay pointers so absent values survive the trip intact.
type RawPlace struct {
	ExternalID  string
	Name        string
	Address     *string
	Lat         *float64
	Lng         *float64
	Rating      *float64
	RatingCount *int
	PriceLevel  string
	Types       []string
}

// FromRaw normalizes a provider record into a Place. Records without an
// external identifier or coordinates are unusable and report ok=false.
func FromRaw(r RawPlace, now time.Time) (*Place, bool) {
	if r.ExternalID == "" || r.Lat == nil || r.Lng == nil {
		return nil, false
	}

	p := &Place{
		ID:         uuid.New(),
		ExternalID: r.ExternalID,
		Name:       r.Name,
		Address:    r.Address,
		Lat:        *r.Lat,
		Lng:        *r.Lng,
		Rating:     r.Rating,
		Tags:       r.Types,
		FetchedAt:  now,
	}
	if p.Name == "" {
		p.Name = "Unknown"
	}
	if r.RatingCount != nil && *r.RatingCount >= 0 {
		p.RatingCount = r.RatingCount
	}
	if tier, ok := ParsePriceTier(r.PriceLevel); ok {
		p.PriceTier = &tier
	}
	return p, true
}

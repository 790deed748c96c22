package ports

import (
	"context"

	"github.com/cafescout/cafescout/internal/core/domain/geo"
	"github.com/cafescout/cafescout/internal/core/domain/place"
)

// PlaceRepository persists normalized places. Implementations must upsert
// by external identifier: repeated writes for the same identifier update
// mutable fields in place and never create duplicate rows.
type PlaceRepository interface {
	// Upsert inserts or updates each place keyed on its external identifier.
	Upsert(ctx context.Context, places []*place.Place) error
	// GetByExternalIDs returns the stored rows for the given identifiers.
	// Unknown identifiers are skipped, not errors.
	GetByExternalIDs(ctx context.Context, externalIDs []string) ([]*place.Place, error)
}

// CacheEntryRepository persists geo-bucket cache entries keyed by the
// derived cache key. Writes overwrite any previous entry under the same
// key (last write wins, no merging of identifier sets).
type CacheEntryRepository interface {
	// Get returns the entry for key, or (nil, nil) when absent.
	// Errors are distinguishable from "not found".
	Get(ctx context.Context, key string) (*geo.CacheEntry, error)
	// Put creates or overwrites the entry for entry.Key.
	Put(ctx context.Context, entry *geo.CacheEntry) error
}

// PlacesProvider is the upstream search API, treated as a black-box
// network call. Implementations must bound the call with a timeout and
// surface non-success responses as errors.
type PlacesProvider interface {
	SearchNearby(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error)
}

// Source tags where a search result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
)

// NearbyResult is the resolver's answer for one query.
type NearbyResult struct {
	Source     Source         `json:"source"`
	CacheKey   string         `json:"cache_key"`
	RadiusUsed float64        `json:"radius_used"`
	Places     []*place.Place `json:"places"`
}

// SearchService resolves nearby queries through the geo-bucketed cache,
// refreshing from the upstream provider on miss.
type SearchService interface {
	Nearby(ctx context.Context, lat, lng float64, radiusM *float64) (*NearbyResult, error)
}

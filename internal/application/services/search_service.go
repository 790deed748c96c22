package services

import (
	"context"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/domain/geo"
	"github.com/cafescout/cafescout/internal/core/domain/place"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// SearchService implements the geo-bucketed cache resolver: derive the
// bucket key, serve a fresh cached identifier set, otherwise refresh from
// the upstream provider and write back through the store.
type SearchService struct {
	places   ports.PlaceRepository
	entries  ports.CacheEntryRepository
	provider ports.PlacesProvider
	cfg      SearchConfig
	logger   *logrus.Logger
}

// SearchConfig groups the resolver's tuning knobs. Precision is the cache
// granularity trade-off (see geo.ClampPrecision); TTL is the freshness
// window of a bucket.
type SearchConfig struct {
	Precision      int
	TTL            time.Duration
	MinRadiusM     float64
	MaxRadiusM     float64
	DefaultRadiusM float64
}

func NewSearchService(places ports.PlaceRepository, entries ports.CacheEntryRepository, provider ports.PlacesProvider, cfg *SearchConfig, logger *logrus.Logger) *SearchService {
	// Apply defaults
	c := SearchConfig{
		Precision:      3,
		TTL:            6 * time.Hour,
		MinRadiusM:     200,
		MaxRadiusM:     5000,
		DefaultRadiusM: 1500,
	}
	if cfg != nil {
		if cfg.Precision != 0 {
			c.Precision = cfg.Precision
		}
		if cfg.TTL > 0 {
			c.TTL = cfg.TTL
		}
		if cfg.MinRadiusM > 0 {
			c.MinRadiusM = cfg.MinRadiusM
		}
		if cfg.MaxRadiusM > 0 {
			c.MaxRadiusM = cfg.MaxRadiusM
		}
		if cfg.DefaultRadiusM > 0 {
			c.DefaultRadiusM = cfg.DefaultRadiusM
		}
	}
	c.Precision = geo.ClampPrecision(c.Precision)
	return &SearchService{places: places, entries: entries, provider: provider, cfg: c, logger: logger}
}

// Nearby resolves one query. Store failures and upstream failures are
// fatal to the request and are not retried here; retry policy belongs to
// the caller.
func (s *SearchService) Nearby(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error) {
	q := geo.Query{Lat: lat, Lng: lng, RadiusM: radiusM}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	radius := geo.ClampRadius(radiusM, s.cfg.MinRadiusM, s.cfg.MaxRadiusM, s.cfg.DefaultRadiusM)
	key := geo.CacheKey(lat, lng, radius, s.cfg.Precision)

	entry, err := s.entries.Get(ctx, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "cache entry lookup failed", err)
	}

	now := time.Now()
	if entry != nil && entry.Servable(now) {
		stored, err := s.places.GetByExternalIDs(ctx, entry.PlaceIDs)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, "cached place read failed", err)
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"cache_key": key, "places": len(stored)}).Debug("nearby search served from cache")
		}
		return &ports.NearbyResult{Source: ports.SourceCache, CacheKey: key, RadiusUsed: radius, Places: stored}, nil
	}

	// Miss, expired, or cached-empty: refresh from upstream with the
	// unrounded coordinates so results center on the actual query point.
	raw, err := s.provider.SearchNearby(ctx, lat, lng, radius)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUpstreamFailure {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "upstream search failed", err)
	}

	now = time.Now()
	normalized := make([]*place.Place, 0, len(raw))
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		p, ok := place.FromRaw(r, now)
		if !ok {
			continue
		}
		normalized = append(normalized, p)
		ids = append(ids, p.ExternalID)
	}

	if len(normalized) > 0 {
		if err := s.places.Upsert(ctx, normalized); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, "place upsert failed", err)
		}
	}

	// Overwrite the bucket: the refresh fully replaces the prior
	// membership, there is no merging of old and new identifier sets.
	newEntry := &geo.CacheEntry{
		Key:       key,
		Lat:       geo.RoundCoord(lat, s.cfg.Precision),
		Lng:       geo.RoundCoord(lng, s.cfg.Precision),
		RadiusM:   radius,
		PlaceIDs:  ids,
		FetchedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.entries.Put(ctx, newEntry); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "cache entry write failed", err)
	}

	// Read back the canonical rows rather than returning the in-memory
	// records, so the response reflects exactly what is durably stored
	// even when a concurrent writer got there first.
	stored := []*place.Place{}
	if len(ids) > 0 {
		stored, err = s.places.GetByExternalIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, "place read-back failed", err)
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"cache_key": key, "places": len(stored), "radius_m": radius}).Debug("nearby search refreshed from upstream")
	}
	return &ports.NearbyResult{Source: ports.SourceUpstream, CacheKey: key, RadiusUsed: radius, Places: stored}, nil
}

package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/geo"
	"github.com/cafescout/cafescout/internal/core/domain/place"
	"github.com/cafescout/cafescout/internal/core/ports"
)

// PlaceRepositoryMock is a lightweight mock for PlaceRepository.
// Call counters let tests assert that a path never touched the store.
type PlaceRepositoryMock struct {
	UpsertFn           func(ctx context.Context, places []*place.Place) error
	GetByExternalIDsFn func(ctx context.Context, externalIDs []string) ([]*place.Place, error)

	UpsertCalls int
	GetCalls    int
	LastUpsert  []*place.Place
}

func (m *PlaceRepositoryMock) Upsert(ctx context.Context, places []*place.Place) error {
	m.UpsertCalls++
	m.LastUpsert = places
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, places)
	}
	return nil
}

func (m *PlaceRepositoryMock) GetByExternalIDs(ctx context.Context, externalIDs []string) ([]*place.Place, error) {
	m.GetCalls++
	if m.GetByExternalIDsFn != nil {
		return m.GetByExternalIDsFn(ctx, externalIDs)
	}
	return nil, nil
}

// CacheEntryRepositoryMock is a lightweight mock for CacheEntryRepository
type CacheEntryRepositoryMock struct {
	GetFn func(ctx context.Context, key string) (*geo.CacheEntry, error)
	PutFn func(ctx context.Context, entry *geo.CacheEntry) error

	GetCalls int
	PutCalls int
	LastPut  *geo.CacheEntry
}

func (m *CacheEntryRepositoryMock) Get(ctx context.Context, key string) (*geo.CacheEntry, error) {
	m.GetCalls++
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	return nil, nil
}

func (m *CacheEntryRepositoryMock) Put(ctx context.Context, entry *geo.CacheEntry) error {
	m.PutCalls++
	m.LastPut = entry
	if m.PutFn != nil {
		return m.PutFn(ctx, entry)
	}
	return nil
}

// PlacesProviderMock is a lightweight mock for the upstream provider
type PlacesProviderMock struct {
	SearchNearbyFn func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error)

	Calls int
}

func (m *PlacesProviderMock) SearchNearby(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
	m.Calls++
	if m.SearchNearbyFn != nil {
		return m.SearchNearbyFn(ctx, lat, lng, radiusM)
	}
	return nil, nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, route, fingerprint string, window, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, route, fingerprint string, window, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, route, fingerprint, window, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// SearchServiceMock is a lightweight mock for SearchService
type SearchServiceMock struct {
	NearbyFn func(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error)
}

func (m *SearchServiceMock) Nearby(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error) {
	if m.NearbyFn != nil {
		return m.NearbyFn(ctx, lat, lng, radiusM)
	}
	return nil, fmt.Errorf("not implemented")
}

// RateLimiterServiceMock is a lightweight mock for RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, clientIdentity []byte, route string) (*ports.RateLimitDecision, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, clientIdentity []byte, route string) (*ports.RateLimitDecision, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, clientIdentity, route)
	}
	return &ports.RateLimitDecision{Allowed: true, Used: 1, Limit: 60, ResetAt: time.Now().Add(time.Minute)}, nil
}

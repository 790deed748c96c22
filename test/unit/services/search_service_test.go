package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	impl "github.com/cafescout/cafescout/internal/application/services"
	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/domain/geo"
	"github.com/cafescout/cafescout/internal/core/domain/place"
	tmocks "github.com/cafescout/cafescout/test/mocks"
)

func floatPtr(v float64) *float64 { return &v }

func rawCafe(id string) place.RawPlace {
	lat, lng := 48.8566, 2.3522
	return place.RawPlace{ExternalID: id, Name: "Cafe " + id, Lat: &lat, Lng: &lng, PriceLevel: "inexpensive"}
}

func storedCafe(id string) *place.Place {
	return &place.Place{ExternalID: id, Name: "Cafe " + id, Lat: 48.8566, Lng: 2.3522, FetchedAt: time.Now()}
}

func TestNearby_FreshCacheHitSkipsUpstream(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{GetFn: func(ctx context.Context, key string) (*geo.CacheEntry, error) {
		return &geo.CacheEntry{Key: key, PlaceIDs: []string{"a", "b"}, FetchedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}
	placesRepo := &tmocks.PlaceRepositoryMock{GetByExternalIDsFn: func(ctx context.Context, ids []string) ([]*place.Place, error) {
		return []*place.Place{storedCafe("a"), storedCafe("b")}, nil
	}}
	provider := &tmocks.PlacesProviderMock{}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "cache" {
		t.Fatalf("expected cache source, got %q", res.Source)
	}
	if provider.Calls != 0 {
		t.Fatalf("fresh hit must not call upstream, got %d calls", provider.Calls)
	}
	if len(res.Places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(res.Places))
	}
}

func TestNearby_ExpiredEntryRefreshesAndOverwrites(t *testing.T) {
	oldExpiry := time.Now().Add(-time.Minute)
	entries := &tmocks.CacheEntryRepositoryMock{GetFn: func(ctx context.Context, key string) (*geo.CacheEntry, error) {
		return &geo.CacheEntry{Key: key, PlaceIDs: []string{"stale"}, FetchedAt: oldExpiry.Add(-time.Hour), ExpiresAt: oldExpiry}, nil
	}}
	placesRepo := &tmocks.PlaceRepositoryMock{GetByExternalIDsFn: func(ctx context.Context, ids []string) ([]*place.Place, error) {
		return []*place.Place{storedCafe("a")}, nil
	}}
	provider := &tmocks.PlacesProviderMock{SearchNearbyFn: func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
		return []place.RawPlace{rawCafe("a")}, nil
	}}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "upstream" {
		t.Fatalf("expected upstream source, got %q", res.Source)
	}
	if provider.Calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", provider.Calls)
	}
	if entries.PutCalls != 1 || entries.LastPut == nil {
		t.Fatal("expected cache entry overwrite")
	}
	if !entries.LastPut.ExpiresAt.After(oldExpiry) {
		t.Fatal("new expiry must be strictly later than the old one")
	}
	if len(entries.LastPut.PlaceIDs) != 1 || entries.LastPut.PlaceIDs[0] != "a" {
		t.Fatalf("refresh must replace bucket membership, got %v", entries.LastPut.PlaceIDs)
	}
}

func TestNearby_EmptyIDSetForcesRefresh(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{GetFn: func(ctx context.Context, key string) (*geo.CacheEntry, error) {
		return &geo.CacheEntry{Key: key, PlaceIDs: []string{}, FetchedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}
	placesRepo := &tmocks.PlaceRepositoryMock{GetByExternalIDsFn: func(ctx context.Context, ids []string) ([]*place.Place, error) {
		return []*place.Place{storedCafe("a")}, nil
	}}
	provider := &tmocks.PlacesProviderMock{SearchNearbyFn: func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
		return []place.RawPlace{rawCafe("a")}, nil
	}}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "upstream" {
		t.Fatal("cached emptiness must never be served")
	}
	if provider.Calls != 1 {
		t.Fatalf("expected upstream refresh, got %d calls", provider.Calls)
	}
}

func TestNearby_InvalidInputTouchesNoCollaborators(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{}
	placesRepo := &tmocks.PlaceRepositoryMock{}
	provider := &tmocks.PlacesProviderMock{}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	_, err := svc.Nearby(context.Background(), 200, 2.3522, nil)
	if apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	if entries.GetCalls != 0 || placesRepo.GetCalls != 0 || placesRepo.UpsertCalls != 0 || provider.Calls != 0 {
		t.Fatal("invalid input must be rejected before any store or upstream call")
	}
}

func TestNearby_UpstreamFailureFailsRequest(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{}
	placesRepo := &tmocks.PlaceRepositoryMock{}
	provider := &tmocks.PlacesProviderMock{SearchNearbyFn: func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	_, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if apperr.KindOf(err) != apperr.KindUpstreamFailure {
		t.Fatalf("expected upstream_failure, got %v", err)
	}
	if entries.PutCalls != 0 || placesRepo.UpsertCalls != 0 {
		t.Fatal("failed upstream call must not write anything")
	}
}

func TestNearby_StoreFailureFailsRequest(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{GetFn: func(ctx context.Context, key string) (*geo.CacheEntry, error) {
		return nil, fmt.Errorf("connection reset")
	}}
	provider := &tmocks.PlacesProviderMock{}
	svc := impl.NewSearchService(&tmocks.PlaceRepositoryMock{}, entries, provider, nil, nil)

	_, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if apperr.KindOf(err) != apperr.KindStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %v", err)
	}
	if provider.Calls != 0 {
		t.Fatal("store failure must not fall back to upstream-only")
	}
}

func TestNearby_RadiusClampAndDefault(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{}
	placesRepo := &tmocks.PlaceRepositoryMock{}
	provider := &tmocks.PlacesProviderMock{}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RadiusUsed != 1500 {
		t.Fatalf("absent radius should default to 1500, got %v", res.RadiusUsed)
	}

	res, err = svc.Nearby(context.Background(), 48.8566, 2.3522, floatPtr(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RadiusUsed != 200 {
		t.Fatalf("radius 100 should clamp to 200, got %v", res.RadiusUsed)
	}

	res, err = svc.Nearby(context.Background(), 48.8566, 2.3522, floatPtr(9000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RadiusUsed != 5000 {
		t.Fatalf("radius 9000 should clamp to 5000, got %v", res.RadiusUsed)
	}
}

func TestNearby_ReadBackReturnsCanonicalRows(t *testing.T) {
	entries := &tmocks.CacheEntryRepositoryMock{}
	// the store returns a row that differs from the in-memory normalized
	// record, as it would after a concurrent writer won the upsert race
	canonical := storedCafe("a")
	canonical.Name = "Canonical Cafe"
	placesRepo := &tmocks.PlaceRepositoryMock{GetByExternalIDsFn: func(ctx context.Context, ids []string) ([]*place.Place, error) {
		return []*place.Place{canonical}, nil
	}}
	provider := &tmocks.PlacesProviderMock{SearchNearbyFn: func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
		return []place.RawPlace{rawCafe("a")}, nil
	}}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Places) != 1 || res.Places[0].Name != "Canonical Cafe" {
		t.Fatal("response must reflect the durably stored rows, not the in-memory records")
	}
}

func TestNearby_RepeatedRefreshKeepsOneRowPerPlace(t *testing.T) {
	// in-memory store keyed by external id to exercise upsert semantics
	store := map[string]*place.Place{}
	placesRepo := &tmocks.PlaceRepositoryMock{
		UpsertFn: func(ctx context.Context, ps []*place.Place) error {
			for _, p := range ps {
				store[p.ExternalID] = p
			}
			return nil
		},
		GetByExternalIDsFn: func(ctx context.Context, ids []string) ([]*place.Place, error) {
			var out []*place.Place
			for _, id := range ids {
				if p, ok := store[id]; ok {
					out = append(out, p)
				}
			}
			return out, nil
		},
	}
	entries := &tmocks.CacheEntryRepositoryMock{} // always a miss
	rating := 3.0
	provider := &tmocks.PlacesProviderMock{SearchNearbyFn: func(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
		r := rawCafe("a")
		v := rating
		r.Rating = &v
		return []place.RawPlace{r}, nil
	}}
	svc := impl.NewSearchService(placesRepo, entries, provider, nil, nil)

	if _, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rating = 4.5
	res, err := svc.Nearby(context.Background(), 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store) != 1 {
		t.Fatalf("upserting the same external id twice must keep one row, got %d", len(store))
	}
	if res.Places[0].Rating == nil || *res.Places[0].Rating != 4.5 {
		t.Fatal("upsert must overwrite mutable fields with the latest values")
	}
}

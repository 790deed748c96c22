package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/place"
	"github.com/cafescout/cafescout/internal/core/ports"
	"golang.org/x/sync/singleflight"
)

var sf singleflight.Group

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func placeCacheKey(externalID string) string { return "place:ext:" + externalID }

// CachingPlaceRepository decorates a PlaceRepository with per-place
// cache-aside reads. Writes go to the store first and invalidate the
// cached keys, so the next read loads the canonical row (the store may
// keep a different row id than the in-memory record after a conflict).
// Concurrent reads of the same identifier set are coalesced in-process
// with singleflight; this does not serialize anything across processes.
type CachingPlaceRepository struct {
	inner ports.PlaceRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingPlaceRepository(inner ports.PlaceRepository, cache ports.Cache, ttl time.Duration) ports.PlaceRepository {
	return &CachingPlaceRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingPlaceRepository) Upsert(ctx context.Context, places []*place.Place) error {
	if err := c.inner.Upsert(ctx, places); err != nil {
		return err
	}
	if c.cache != nil {
		for _, p := range places {
			_ = c.cache.Delete(ctx, placeCacheKey(p.ExternalID))
		}
	}
	return nil
}

func (c *CachingPlaceRepository) GetByExternalIDs(ctx context.Context, externalIDs []string) ([]*place.Place, error) {
	if len(externalIDs) == 0 {
		return []*place.Place{}, nil
	}

	cached := make([]*place.Place, 0, len(externalIDs))
	allHit := true
	for _, id := range externalIDs {
		v, ok := cacheGet[place.Place](c.cache, ctx, placeCacheKey(id))
		if !ok {
			allHit = false
			break
		}
		cached = append(cached, v)
	}
	if allHit {
		return cached, nil
	}

	// Any miss loads the full set from the store so one round trip
	// refreshes every key in the bucket.
	sfKey := "places:" + strings.Join(externalIDs, ",")
	res, err, _ := sf.Do(sfKey, func() (any, error) {
		all, err := c.inner.GetByExternalIDs(ctx, externalIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			cacheSetSilently(c.cache, ctx, placeCacheKey(p.ExternalID), p, c.ttl)
		}
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	all, ok := res.([]*place.Place)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return all, nil
}

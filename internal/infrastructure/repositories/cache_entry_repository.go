package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cafescout/cafescout/internal/core/domain/geo"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/cafescout/cafescout/internal/infrastructure/db"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// CacheEntryRepository implements the cache entry repository interface
// over Postgres. Expiry is lazy: stale rows stay until the same key is
// written again, no background sweep.
type CacheEntryRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewCacheEntryRepository creates a new cache entry repository
func NewCacheEntryRepository(database *db.Database, logger *logrus.Logger) ports.CacheEntryRepository {
	return &CacheEntryRepository{
		db:     database,
		logger: logger,
	}
}

// Get retrieves the entry for key. Absence is (nil, nil), not an error.
func (r *CacheEntryRepository) Get(ctx context.Context, key string) (*geo.CacheEntry, error) {
	var e geo.CacheEntry
	var ids pq.StringArray

	query := `
		SELECT cache_key, lat, lng, radius_m, place_ids, fetched_at, expires_at
		FROM place_cache_entries
		WHERE cache_key = $1`

	err := r.db.DB.QueryRowContext(ctx, query, key).Scan(
		&e.Key, &e.Lat, &e.Lng, &e.RadiusM, &ids, &e.FetchedAt, &e.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	e.PlaceIDs = ids
	return &e, nil
}

// Put creates or overwrites the entry under entry.Key. Last writer wins;
// the new identifier set fully replaces the old one.
func (r *CacheEntryRepository) Put(ctx context.Context, entry *geo.CacheEntry) error {
	query := `
		INSERT INTO place_cache_entries (cache_key, lat, lng, radius_m, place_ids, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cache_key) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			radius_m = EXCLUDED.radius_m,
			place_ids = EXCLUDED.place_ids,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`

	_, err := r.db.DB.ExecContext(ctx, query,
		entry.Key, entry.Lat, entry.Lng, entry.RadiusM,
		pq.Array(entry.PlaceIDs), entry.FetchedAt, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

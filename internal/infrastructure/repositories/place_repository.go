package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cafescout/cafescout/internal/core/domain/place"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/cafescout/cafescout/internal/infrastructure/db"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PlaceRepository implements the place repository interface over Postgres.
type PlaceRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewPlaceRepository creates a new place repository
func NewPlaceRepository(database *db.Database, logger *logrus.Logger) ports.PlaceRepository {
	return &PlaceRepository{
		db:     database,
		logger: logger,
	}
}

// Upsert inserts or updates places keyed on external_id. The unique
// constraint on external_id resolves concurrent writers; mutable fields
// and fetched_at are refreshed on conflict, the row id is kept.
func (r *PlaceRepository) Upsert(ctx context.Context, places []*place.Place) error {
	if len(places) == 0 {
		return nil
	}

	query := `
		INSERT INTO places (id, external_id, name, address, lat, lng, rating, rating_count, price_tier, tags, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			rating = EXCLUDED.rating,
			rating_count = EXCLUDED.rating_count,
			price_tier = EXCLUDED.price_tier,
			tags = EXCLUDED.tags,
			fetched_at = EXCLUDED.fetched_at`

	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin place upsert: %w", err)
	}
	defer tx.Rollback()

	for _, p := range places {
		var tier *int
		if p.PriceTier != nil {
			t := int(*p.PriceTier)
			tier = &t
		}
		_, err = tx.ExecContext(ctx, query,
			p.ID, p.ExternalID, p.Name, p.Address, p.Lat, p.Lng,
			p.Rating, p.RatingCount, tier, pq.Array(p.Tags), p.FetchedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert place %s: %w", p.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit place upsert: %w", err)
	}
	return nil
}

// GetByExternalIDs retrieves the stored rows for the given identifiers.
func (r *PlaceRepository) GetByExternalIDs(ctx context.Context, externalIDs []string) ([]*place.Place, error) {
	if len(externalIDs) == 0 {
		return []*place.Place{}, nil
	}

	query := `
		SELECT id, external_id, name, address, lat, lng, rating, rating_count, price_tier, tags, fetched_at
		FROM places
		WHERE external_id = ANY($1)
		ORDER BY rating DESC NULLS LAST, name ASC`

	rows, err := r.db.DB.QueryContext(ctx, query, pq.Array(externalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	var places []*place.Place
	for rows.Next() {
		p := &place.Place{}
		var (
			address     sql.NullString
			rating      sql.NullFloat64
			ratingCount sql.NullInt64
			priceTier   sql.NullInt64
			tags        pq.StringArray
		)

		err := rows.Scan(&p.ID, &p.ExternalID, &p.Name, &address, &p.Lat, &p.Lng,
			&rating, &ratingCount, &priceTier, &tags, &p.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}

		if address.Valid {
			p.Address = &address.String
		}
		if rating.Valid {
			p.Rating = &rating.Float64
		}
		if ratingCount.Valid {
			c := int(ratingCount.Int64)
			p.RatingCount = &c
		}
		if priceTier.Valid {
			t := place.PriceTier(priceTier.Int64)
			p.PriceTier = &t
		}
		p.Tags = tags

		places = append(places, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	return places, nil
}

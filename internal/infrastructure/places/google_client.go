package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/domain/place"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// Config groups the upstream provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// PlaceType narrows the search; defaults to cafe.
	PlaceType string
}

// Client calls the Google Places Nearby Search API. It performs no
// caching of its own; every SearchNearby is one bounded network call.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger
}

// NewClient creates a places API client.
func NewClient(cfg *Config, logger *logrus.Logger) (*Client, error) {
	c := Config{
		BaseURL:   defaultBaseURL,
		Timeout:   10 * time.Second,
		PlaceType: "cafe",
	}
	if cfg != nil {
		c.APIKey = cfg.APIKey
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
		if cfg.PlaceType != "" {
			c.PlaceType = cfg.PlaceType
		}
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("places API key is required")
	}
	return &Client{
		cfg:    c,
		http:   &http.Client{Timeout: c.Timeout},
		logger: logger,
	}, nil
}

// nearbyResponse mirrors the provider's wire format.
type nearbyResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Results      []wireResult `json:"results"`
}

type wireResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         *string  `json:"vicinity,omitempty"`
	Geometry         geometry `json:"geometry"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	PriceLevel       *int     `json:"price_level,omitempty"`
	Types            []string `json:"types"`
}

type geometry struct {
	Location *location `json:"location,omitempty"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// priceLevelNames converts the provider's 0-4 price ordinal back to the
// canonical tier strings the domain mapping understands.
var priceLevelNames = [...]string{"free", "inexpensive", "moderate", "expensive", "very_expensive"}

// SearchNearby performs one nearby search. Non-2xx responses and
// non-success provider statuses surface as upstream failures carrying the
// status and message; the context bounds the request.
func (c *Client) SearchNearby(ctx context.Context, lat, lng, radiusM float64) ([]place.RawPlace, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%.0f", radiusM))
	params.Set("type", c.cfg.PlaceType)
	params.Set("key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build nearby search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "nearby search request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "failed to read nearby search response", err)
	}

	if resp.StatusCode != http.StatusOK {
		e := apperr.New(apperr.KindUpstreamFailure, fmt.Sprintf("nearby search returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
		e.UpstreamStatus = resp.StatusCode
		return nil, e
	}

	var parsed nearbyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "failed to decode nearby search response", err)
	}

	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		e := apperr.New(apperr.KindUpstreamFailure, fmt.Sprintf("nearby search status %s: %s", parsed.Status, parsed.ErrorMessage))
		e.UpstreamStatus = resp.StatusCode
		return nil, e
	}

	raw := make([]place.RawPlace, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		r := place.RawPlace{
			ExternalID:  res.PlaceID,
			Name:        res.Name,
			Address:     res.Vicinity,
			Rating:      res.Rating,
			RatingCount: res.UserRatingsTotal,
			Types:       res.Types,
		}
		if res.Geometry.Location != nil {
			lat, lng := res.Geometry.Location.Lat, res.Geometry.Location.Lng
			r.Lat, r.Lng = &lat, &lng
		}
		if res.PriceLevel != nil && *res.PriceLevel >= 0 && *res.PriceLevel < len(priceLevelNames) {
			r.PriceLevel = priceLevelNames[*res.PriceLevel]
		}
		raw = append(raw, r)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"results": len(raw), "status": parsed.Status}).Debug("nearby search upstream call completed")
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ ports.PlacesProvider = (*Client)(nil)

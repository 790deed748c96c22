package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/cafescout/cafescout/internal/infrastructure/httpserver"
	tmocks "github.com/cafescout/cafescout/test/mocks"
)

func newTestServer(search ports.SearchService) *httpserver.Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", BurstPerSecond: 1000}, logger, httpserver.ServerDeps{
		SearchService:      search,
		RateLimiterService: &tmocks.RateLimiterServiceMock{},
	})
}

func TestNearbyHandler_ReturnsResolverResult(t *testing.T) {
	search := &tmocks.SearchServiceMock{NearbyFn: func(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error) {
		require.Equal(t, 48.8566, lat)
		require.Equal(t, 2.3522, lng)
		require.Nil(t, radiusM)
		return &ports.NearbyResult{Source: ports.SourceCache, CacheKey: "nearby:48.857:2.352:r=1500", RadiusUsed: 1500}, nil
	}}
	srv := newTestServer(search)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=48.8566&lng=2.3522", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "cache", body["source"])
	require.Equal(t, "nearby:48.857:2.352:r=1500", body["cache_key"])
}

func TestNearbyHandler_PassesRadiusThrough(t *testing.T) {
	search := &tmocks.SearchServiceMock{NearbyFn: func(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error) {
		require.NotNil(t, radiusM)
		require.Equal(t, 800.0, *radiusM)
		return &ports.NearbyResult{Source: ports.SourceUpstream, RadiusUsed: 800}, nil
	}}
	srv := newTestServer(search)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=1&lng=2&radius=800", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNearbyHandler_MissingCoordinatesReturns400(t *testing.T) {
	srv := newTestServer(&tmocks.SearchServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=48.8566", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=abc&lng=2", nil)
	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearbyHandler_ErrorTaxonomyMapsToStatusCodes(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindInvalidInput, http.StatusBadRequest},
		{apperr.KindStoreUnavailable, http.StatusServiceUnavailable},
		{apperr.KindUpstreamFailure, http.StatusBadGateway},
	}
	for _, tc := range cases {
		search := &tmocks.SearchServiceMock{NearbyFn: func(ctx context.Context, lat, lng float64, radiusM *float64) (*ports.NearbyResult, error) {
			return nil, apperr.New(tc.kind, "boom")
		}}
		srv := newTestServer(search)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=1&lng=2", nil)
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, "kind %s", tc.kind)
	}
}

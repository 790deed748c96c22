package httpserver

import (
	"net/http"
	"strconv"

	"github.com/cafescout/cafescout/internal/core/domain/apperr"
	"github.com/labstack/echo/v4"
)

// nearbyPlaces answers GET /api/v1/places/nearby?lat=&lng=&radius=.
func (s *Server) nearbyPlaces(c echo.Context) error {
	latStr := c.QueryParam("lat")
	lngStr := c.QueryParam("lng")
	if latStr == "" || lngStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid latitude")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid longitude")
	}

	var radius *float64
	if radiusStr := c.QueryParam("radius"); radiusStr != "" {
		r, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid radius")
		}
		radius = &r
	}

	result, err := s.searchSvc.Nearby(c.Request().Context(), lat, lng, radius)
	if err != nil {
		return HTTPErrorFrom(err)
	}

	GetCacheLookups().WithLabelValues(string(result.Source)).Inc()
	return c.JSON(http.StatusOK, result)
}

// HTTPErrorFrom maps the error taxonomy to transport status codes.
func HTTPErrorFrom(err error) *echo.HTTPError {
	e, ok := apperr.As(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	switch e.Kind {
	case apperr.KindInvalidInput:
		return echo.NewHTTPError(http.StatusBadRequest, e.Message)
	case apperr.KindStoreUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	case apperr.KindUpstreamFailure:
		return echo.NewHTTPError(http.StatusBadGateway, e.Message)
	case apperr.KindRateLimited:
		return echo.NewHTTPError(http.StatusTooManyRequests, e.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	places := api.Group("/places")
	places.GET("/nearby", s.nearbyPlaces, s.middleware.RateLimit.Handler())
}

package httpserver

import (
	"net/http"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
)

// readMethods serves HEAD from the same handler, and the same cache entry, as GET.
var readMethods = []string{http.MethodGet, http.MethodHead}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	// the subject must be known before the response cache fingerprints the request
	api.Use(s.middleware.JWT.OptionalJWT())
	if s.httpCacheEnabled {
		api.Use(s.middleware.HTTPCache.Handler())
	}
	auth := s.middleware.JWT.RequireJWT()

	users := api.Group("/users")
	users.POST("", s.createUser, auth)
	users.Match(readMethods, "/:id", s.getUser)
	users.PUT("/:id", s.updateUser, auth)
	users.DELETE("/:id", s.deleteUser, auth)

	cities := api.Group("/cities")
	cities.Match(readMethods, "", s.listCities)
	cities.POST("", s.createCity, auth)
	cities.PUT("/:id", s.updateCity, auth)
	cities.DELETE("/:id", s.deleteCity, auth)

	categories := api.Group("/service-categories")
	categories.Match(readMethods, "", s.listServiceCategories)
	categories.POST("", s.createServiceCategory, auth)
	categories.PUT("/:id", s.updateServiceCategory, auth)
	categories.DELETE("/:id", s.deleteServiceCategory, auth)

	svcs := api.Group("/services")
	svcs.Match(readMethods, "", s.listServices)
	svcs.POST("", s.createService, auth)
	svcs.PUT("/:id", s.updateService, auth)
	svcs.DELETE("/:id", s.deleteService, auth)

	bookings := api.Group("/bookings", auth)
	bookings.Match(readMethods, "", s.listBookings)
	bookings.POST("", s.createBooking)
	bookings.PUT("/:id", s.updateBooking)
	bookings.PATCH("/:id/status", s.updateBookingStatus)

	reviews := api.Group("/reviews")
	reviews.Match(readMethods, "", s.listReviews)
	reviews.POST("", s.createReview, auth)
	reviews.DELETE("/:id", s.deleteReview, auth)

	api.POST("/messages", s.sendMessage, auth, s.middleware.RateLimit.Handler(ports.ActionMessaging))
	api.POST("/disputes", s.fileDispute, auth, s.middleware.RateLimit.Handler(ports.ActionDispute))
}

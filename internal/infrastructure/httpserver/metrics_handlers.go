package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route, status and response-cache outcome",
		},
		[]string{"method", "endpoint", "status", "cache"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	metricsHandler = echo.WrapHandler(promhttp.Handler())
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

func GetRequestsTotal() *prometheus.CounterVec { return requestsTotal }

func GetRequestDuration() *prometheus.HistogramVec { return requestDuration }

func (s *Server) logMetricsInitialization() {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"metrics_endpoint": "/metrics",
		"collectors": []string{
			"http_requests_total",
			"http_request_duration_seconds",
			"cache_lookups_total",
			"cache_invalidations_total",
			"rate_limit_decisions_total",
		},
	}).Debug("Prometheus metrics registered")
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	return metricsHandler(c)
}

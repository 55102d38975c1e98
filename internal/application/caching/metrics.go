package caching

import "github.com/prometheus/client_golang/prometheus"

const (
	LayerEntity = "entity"
	LayerHTTP   = "http"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

var (
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by layer and result",
		},
		[]string{"layer", "result"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Cache invalidations by kind and result",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(lookupsTotal)
	prometheus.MustRegister(invalidationsTotal)
}

// RecordLookup counts one lookup for the given layer.
func RecordLookup(layer, result string) {
	lookupsTotal.WithLabelValues(layer, result).Inc()
}

func recordInvalidation(kind string, err error) {
	result := "ok"
	if err != nil {
		result = ResultError
	}
	invalidationsTotal.WithLabelValues(kind, result).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
)

// Recorder exposes aggregation activity as Prometheus metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	providerRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	aggregation      *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{}
	r.providerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry",
		Name:      "provider_requests_total",
		Help:      "Upstream provider calls by outcome",
	}, []string{"provider", "outcome"})
	r.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry",
		Name:      "cache_lookups_total",
		Help:      "Snapshot cache lookups by result",
	}, []string{"category", "result"})
	r.aggregation = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "telemetry",
		Name:      "aggregation_duration_seconds",
		Help:      "Time spent building a snapshot",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"category"})

	reg.MustRegister(r.providerRequests, r.cacheLookups, r.aggregation)
	return r
}

// ProviderResult counts one provider call.
func (r *Recorder) ProviderResult(provider string, status telemetry.SourceStatus) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, string(status)).Inc()
}

// CacheLookup counts one cache lookup for category.
func (r *Recorder) CacheLookup(category string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(category, result).Inc()
}

// AggregationDuration observes how long building a snapshot took.
func (r *Recorder) AggregationDuration(category string, d time.Duration) {
	if r == nil {
		return
	}
	r.aggregation.WithLabelValues(category).Observe(d.Seconds())
}

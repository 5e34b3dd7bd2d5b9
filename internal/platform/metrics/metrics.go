package metrics

import (
	"errors"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "model_registry"

var (
	adapterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "adapter_requests_total",
		Help:      "Outbound provider adapter calls by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	adapterDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "adapter_request_duration_seconds",
		Help:      "Latency of outbound provider adapter calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider", "operation"})

	catalogMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_mutations_total",
		Help:      "Catalog mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_cache_lookups_total",
		Help:      "Catalog listing cache lookups by result (hit, miss).",
	}, []string{"result"})
)

// Outcome labels err with its domain kind, or "ok" for nil.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *domain.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return string(domain.KindInternal)
}

// ObserveAdapterCall records one adapter call started at start.
func ObserveAdapterCall(provider, operation string, start time.Time, err error) {
	adapterRequests.WithLabelValues(provider, operation, Outcome(err)).Inc()
	adapterDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func ObserveMutation(operation string, err error) {
	catalogMutations.WithLabelValues(operation, Outcome(err)).Inc()
}

func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

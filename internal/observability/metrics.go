// Package observability holds the Prometheus metrics for the service.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Ingestion metrics
	TransactionsIngested prometheus.Counter
	EdgesIngested        prometheus.Counter
	IngestSteps          prometheus.Counter
	StepDuration         prometheus.Histogram

	// Query metrics
	QueryExecutions *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
}

// NewCollector returns the process-wide metrics collector, creating it on
// first use. The namespace only takes effect on that first call; later
// calls return the existing collector regardless of the argument.
func NewCollector(namespace string) *Collector {
	// Singleton avoids duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	transactionsIngested := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_ingested_total",
			Help:      "Total number of transaction vertices inserted into the graph store",
		},
	)

	edgesIngested := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_ingested_total",
			Help:      "Total number of edges inserted into the graph store",
		},
	)

	ingestSteps := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_steps_total",
			Help:      "Total number of time-step batches processed",
		},
	)

	stepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_step_duration_seconds",
			Help:      "Duration of one time-step ingestion batch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	queryExecutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_executions_total",
			Help:      "Total number of catalog query executions",
		},
		[]string{"tier", "query", "status"},
	)

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Catalog query execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tier", "query"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		transactionsIngested,
		edgesIngested,
		ingestSteps,
		stepDuration,
		queryExecutions,
		queryDuration,
	)

	globalCollector = &Collector{
		registry:             registry,
		HTTPRequests:         httpRequests,
		HTTPDuration:         httpDuration,
		TransactionsIngested: transactionsIngested,
		EdgesIngested:        edgesIngested,
		IngestSteps:          ingestSteps,
		StepDuration:         stepDuration,
		QueryExecutions:      queryExecutions,
		QueryDuration:        queryDuration,
	}
	return globalCollector
}

// Registry exposes the collector's registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTP records one HTTP request.
func (c *Collector) ObserveHTTP(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuery records one catalog query execution.
func (c *Collector) ObserveQuery(tier, query string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.QueryExecutions.WithLabelValues(tier, query, status).Inc()
	c.QueryDuration.WithLabelValues(tier, query).Observe(duration.Seconds())
}

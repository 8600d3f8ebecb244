package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "featurekg"

var (
	statementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_statement_duration_seconds",
			Help:      "Duration of graph store statements by operation class",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	statementErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_statement_errors_total",
			Help:      "Failed graph store statements by operation class",
		},
		[]string{"operation"},
	)

	graphUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_up",
			Help:      "1 when the last graph health check passed",
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	snapshotNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_nodes",
			Help:      "Nodes held by the graph snapshot",
		},
	)

	snapshotRelationships = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_relationships",
			Help:      "Relationships held by the graph snapshot",
		},
	)

	snapshotReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reloads by outcome",
		},
		[]string{"status"},
	)

	importRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Imported records by document kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	interchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interchange_duration_seconds",
			Help:      "Duration of import and export runs",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"kind", "status"},
	)

	exportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_cache_lookups_total",
			Help:      "Hierarchical export cache lookups by result",
		},
		[]string{"result"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStatement records one graph statement.
func ObserveStatement(operation string, d time.Duration, err error) {
	statementDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		statementErrors.WithLabelValues(operation).Inc()
	}
}

func SetGraphUp(up bool) {
	if up {
		graphUp.Set(1)
		return
	}
	graphUp.Set(0)
}

func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

func SetSnapshotSize(nodes, relationships int) {
	snapshotNodes.Set(float64(nodes))
	snapshotRelationships.Set(float64(relationships))
}

func RecordSnapshotReload(err error) {
	snapshotReloads.WithLabelValues(status(err)).Inc()
}

// RecordImport adds the counts of one import run.
func RecordImport(kind string, nodesCreated, nodesFailed, relsCreated, relsSkipped int, d time.Duration, err error) {
	importRecords.WithLabelValues(kind, "node_created").Add(float64(nodesCreated))
	importRecords.WithLabelValues(kind, "node_failed").Add(float64(nodesFailed))
	importRecords.WithLabelValues(kind, "relationship_created").Add(float64(relsCreated))
	importRecords.WithLabelValues(kind, "relationship_skipped").Add(float64(relsSkipped))
	interchangeDuration.WithLabelValues(kind, status(err)).Observe(d.Seconds())
}

func RecordExport(kind string, d time.Duration, err error) {
	interchangeDuration.WithLabelValues(kind, status(err)).Observe(d.Seconds())
}

func RecordCacheLookup(hit bool) {
	if hit {
		exportCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	exportCacheLookups.WithLabelValues("miss").Inc()
}

func ObserveHTTP(method, route string, code int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics holds the Prometheus collectors of the service. Collectors
// are registered with the default registry at init so that /metrics exposes
// them without further wiring.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query outcomes used as the "outcome" label of QueriesTotal.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "query_failed"
	OutcomeCancelled = "cancelled"
)

// Match pipeline metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nearby",
			Name:      "queries_total",
			Help:      "Total number of nearby queries by outcome",
		},
		[]string{"outcome"},
	)

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nearby",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single geohash range scan in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CandidatesScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nearby",
			Name:      "candidates_scanned",
			Help:      "Deduplicated candidates per query before refinement",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	MalformedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nearby",
			Name:      "malformed_records_total",
			Help:      "Candidate records skipped because they could not be parsed",
		},
	)

	MatchesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nearby",
			Name:      "matches_returned",
			Help:      "Matches returned per successful query",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(CandidatesScanned)
	prometheus.MustRegister(MalformedRecordsTotal)
	prometheus.MustRegister(MatchesReturned)
}

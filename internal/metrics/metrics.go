// Package metrics holds the Prometheus collectors of the view server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/model"
)

const namespace = "topicview"

var (
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches handed to the view by result (applied, error, timeout).",
		},
		[]string{"result"},
	)
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records projected per topic.",
		},
		[]string{"topic"},
	)
	ParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_parse_failures_total",
			Help:      "Payloads kept as raw strings because they were not JSON.",
		},
	)
	ViewColumns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_dynamic_columns",
			Help:      "Dynamic columns of the applied batch.",
		},
	)
	ViewRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_rows",
			Help:      "Rows of the applied batch.",
		},
	)
	FetchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Time spent in the fetch collaborator.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		BatchesTotal,
		RecordsTotal,
		ParseFailuresTotal,
		ViewColumns,
		ViewRows,
		FetchLatency,
	)
}

// ObserveBatch records one fetch result and, when it was applied, the
// statistics of the resulting view.
func ObserveBatch(res model.FetchResult, stats engine.BatchStats) {
	switch {
	case res.Error != "":
		BatchesTotal.WithLabelValues("error").Inc()
		return
	case res.HasTimeout:
		BatchesTotal.WithLabelValues("timeout").Inc()
	default:
		BatchesTotal.WithLabelValues("applied").Inc()
	}
	for topic, n := range stats.TopicCounts {
		RecordsTotal.WithLabelValues(topic).Add(float64(n))
	}
	ParseFailuresTotal.Add(float64(stats.ParseFailures))
	ViewColumns.Set(float64(stats.Columns))
	ViewRows.Set(float64(stats.Rows))
}

// ObserveFetch records how long a fetch took.
func ObserveFetch(started time.Time) {
	FetchLatency.Observe(time.Since(started).Seconds())
}

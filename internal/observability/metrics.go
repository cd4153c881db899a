package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "kinneret"

// Metrics holds the Prometheus collectors for ingestion and publication runs.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsFetched prometheus.Counter
	RecordsMerged  prometheus.Counter
	RecordsDropped prometheus.Counter
	HistoryRecords prometheus.Gauge
	CurrentLevel   prometheus.Gauge

	PublicationRuns *prometheus.CounterVec   // labels: state
	ContentSource   *prometheus.CounterVec   // labels: source={gemini,template}
	RunDuration     *prometheus.HistogramVec // labels: job={update,publish}
	LastSuccess     *prometheus.GaugeVec     // labels: job
}

// NewMetrics creates all metrics on a private registry together with Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry without runtime collectors.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Raw records received from the open data feed.",
		}),
		RecordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_merged_total",
			Help:      "Records newly inserted into the history.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Raw records rejected for a future date or an invalid level.",
		}),
		HistoryRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Number of records in the canonical history.",
		}),
		CurrentLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_level_meters",
			Help:      "Most recent measured water level.",
		}),
		PublicationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publication_runs_total",
			Help:      "Publication runs by terminal state.",
		}, []string{"state"}),
		ContentSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_source_total",
			Help:      "Published texts by content source.",
		}, []string{"source"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of update and publish jobs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful job run.",
		}, []string{"job"}),
	}

	m.Registry.MustRegister(
		m.RecordsFetched,
		m.RecordsMerged,
		m.RecordsDropped,
		m.HistoryRecords,
		m.CurrentLevel,
		m.PublicationRuns,
		m.ContentSource,
		m.RunDuration,
		m.LastSuccess,
	)
	return m
}

// ObserveRun records the duration of a job and, on success, its completion time.
func (m *Metrics) ObserveRun(job string, start, end time.Time, err error) {
	m.RunDuration.WithLabelValues(job).Observe(end.Sub(start).Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(job).Set(float64(end.Unix()))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

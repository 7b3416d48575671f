package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_etl"

// Metrics holds the Prometheus collectors for one batch run. Each instance
// owns a private registry so the run can be dumped to a textfile.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead         prometheus.Counter
	RowsMalformed    prometheus.Counter
	RowsFiltered     prometheus.Counter
	ObservationsKept prometheus.Counter
	ObservationsDrop prometheus.Counter

	// Aggregate sizes, labelled by table={daily,monthly,extremes}.
	SummaryRows *prometheus.GaugeVec

	// Export outcomes, labelled by sink={csv,tableau,xlsx,kafka,postgres}.
	ExportDuration *prometheus.HistogramVec
	ExportErrors   *prometheus.CounterVec

	RunDuration        prometheus.Gauge
	LastSuccessSeconds prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from the input file.",
		}),
		RowsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_malformed_total",
			Help:      "Input rows dropped because they failed to parse.",
		}),
		RowsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Input rows dropped because their airport is not configured.",
		}),
		ObservationsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_clean_total",
			Help:      "Observations with a usable wind speed.",
		}),
		ObservationsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_dropped_total",
			Help:      "Observations dropped for a missing, non-numeric, or negative wind speed.",
		}),
		SummaryRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_rows",
			Help:      "Rows produced per derived table.",
		}, []string{"table"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent writing the report to each sink.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"sink"}),
		ExportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Failed writes per sink.",
		}, []string{"sink"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccessSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.RowsRead,
		m.RowsMalformed,
		m.RowsFiltered,
		m.ObservationsKept,
		m.ObservationsDrop,
		m.SummaryRows,
		m.ExportDuration,
		m.ExportErrors,
		m.RunDuration,
		m.LastSuccessSeconds,
	)

	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the current values in the node_exporter textfile format.
// The write is atomic: the file is replaced via rename.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

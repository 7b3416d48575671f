package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
	"github.com/couchcryptid/wind-speed-etl/internal/observability"
)

// Source streams raw observations from one input. Err reports a fatal read
// failure once iteration has stopped.
type Source interface {
	Observations() iter.Seq[domain.Observation]
	Err() error
	Stats() domain.IngestStats
	Close() error
}

// OpenFunc opens the run's input. It returns an error wrapping
// domain.ErrInputNotFound when the input cannot be opened.
type OpenFunc func() (Source, error)

// Exporter writes a finished report to one destination.
type Exporter interface {
	Name() string
	Export(ctx context.Context, report domain.Report) error
}

// Options tunes aggregation and export.
type Options struct {
	ExtremesAirports []string
	TopN             int
	// SinkTimeout bounds each Export call; zero means no limit.
	SinkTimeout time.Duration
	// Clock times the run; nil uses the real clock.
	Clock clockwork.Clock
}

// Pipeline runs one ingest-clean-aggregate-export pass.
type Pipeline struct {
	open      OpenFunc
	exporters []Exporter
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	clock     clockwork.Clock
}

// New creates a Pipeline. Exporters run in the order given.
func New(open OpenFunc, exporters []Exporter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		open:      open,
		exporters: exporters,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
		clock:     clock,
	}
}

// Run reads the input, builds the report, and hands it to every exporter.
// Input and data-quality failures abort before any exporter is called.
// Exporter failures do not stop the remaining exporters; they are joined
// into the returned error.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := p.clock.Now()
	p.logger.Info("pipeline started", "exporters", len(p.exporters), "top_n", p.opts.TopN)

	report, err := p.buildReport()
	if err != nil {
		return domain.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("run cancelled before export: %w", err)
	}

	exportErr := p.export(ctx, report)

	elapsed := p.clock.Since(start)
	p.metrics.RunDuration.Set(elapsed.Seconds())
	if exportErr != nil {
		return report, exportErr
	}
	p.metrics.LastSuccessSeconds.Set(float64(p.clock.Now().Unix()))
	p.logger.Info("pipeline finished", "duration", elapsed)
	return report, nil
}

func (p *Pipeline) buildReport() (domain.Report, error) {
	src, err := p.open()
	if err != nil {
		return domain.Report{}, err
	}
	defer src.Close() //nolint:errcheck // read-only input

	clean, cleanErr := domain.Clean(src.Observations())
	if err := src.Err(); err != nil {
		return domain.Report{}, err
	}

	stats := src.Stats()
	p.metrics.RowsRead.Add(float64(stats.Rows))
	p.metrics.RowsMalformed.Add(float64(stats.Malformed))
	p.metrics.RowsFiltered.Add(float64(stats.Filtered))
	p.metrics.ObservationsKept.Add(float64(len(clean)))
	p.metrics.ObservationsDrop.Add(float64(stats.Emitted - len(clean)))

	p.logger.Info("input ingested",
		"rows", stats.Rows,
		"malformed", stats.Malformed,
		"filtered", stats.Filtered,
		"clean", len(clean),
		"dropped", stats.Emitted-len(clean),
	)
	if stats.Malformed > 0 {
		p.logger.Warn("malformed rows skipped", "count", stats.Malformed)
	}
	if cleanErr != nil {
		return domain.Report{}, cleanErr
	}

	report := domain.BuildReport(clean, p.opts.ExtremesAirports, p.opts.TopN)
	p.metrics.SummaryRows.WithLabelValues("daily").Set(float64(len(report.Daily)))
	p.metrics.SummaryRows.WithLabelValues("monthly").Set(float64(len(report.Monthly)))
	p.metrics.SummaryRows.WithLabelValues("extremes").Set(float64(len(report.Extremes)))

	p.logger.Info("report built",
		"airports", report.Airports,
		"daily", len(report.Daily),
		"monthly", len(report.Monthly),
		"extremes", len(report.Extremes),
	)
	return report, nil
}

func (p *Pipeline) export(ctx context.Context, report domain.Report) error {
	var errs []error
	for _, e := range p.exporters {
		if err := p.exportOne(ctx, e, report); err != nil {
			p.metrics.ExportErrors.WithLabelValues(e.Name()).Inc()
			p.logger.Error("export failed", "sink", e.Name(), "error", err)
			errs = append(errs, fmt.Errorf("export %s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) exportOne(ctx context.Context, e Exporter, report domain.Report) error {
	if p.opts.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.SinkTimeout)
		defer cancel()
	}

	start := p.clock.Now()
	err := e.Export(ctx, report)
	elapsed := p.clock.Since(start)
	p.metrics.ExportDuration.WithLabelValues(e.Name()).Observe(elapsed.Seconds())
	if err == nil {
		p.logger.Info("export finished", "sink", e.Name(), "duration", elapsed)
	}
	return err
}

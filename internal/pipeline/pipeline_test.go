package pipeline_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-speed-etl/internal/adapter/weathercsv"
	"github.com/couchcryptid/wind-speed-etl/internal/domain"
	"github.com/couchcryptid/wind-speed-etl/internal/observability"
	"github.com/couchcryptid/wind-speed-etl/internal/pipeline"
)

// --- mocks ---

type recordingExporter struct {
	name    string
	err     error
	reports []domain.Report
}

func (r *recordingExporter) Name() string { return r.name }

func (r *recordingExporter) Export(_ context.Context, report domain.Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

// blockingExporter waits for its context to end.
type blockingExporter struct{}

func (blockingExporter) Name() string { return "slow" }

func (blockingExporter) Export(ctx context.Context, _ domain.Report) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingSource struct {
	err error
}

func (f *failingSource) Observations() iter.Seq[domain.Observation] {
	return func(func(domain.Observation) bool) {}
}
func (f *failingSource) Err() error                { return f.err }
func (f *failingSource) Stats() domain.IngestStats { return domain.IngestStats{} }
func (f *failingSource) Close() error              { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openCSV(path string, airports []string) pipeline.OpenFunc {
	return func() (pipeline.Source, error) {
		src, err := weathercsv.Open(path, airports, discardLogger())
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

var runStart = time.Date(2026, time.October, 18, 6, 0, 0, 0, time.UTC)

func testOptions() pipeline.Options {
	return pipeline.Options{
		ExtremesAirports: []string{"LGA"},
		TopN:             2,
		Clock:            clockwork.NewFakeClockAt(runStart),
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(runStart))
	t.Cleanup(func() { domain.SetClock(nil) })

	path := writeMockFile(t, smallMockOptions())
	exp := &recordingExporter{name: "memory"}
	metrics := observability.NewMetrics()

	p := pipeline.New(openCSV(path, domain.DefaultAirports), []pipeline.Exporter{exp}, discardLogger(), metrics, testOptions())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, exp.reports, 1)
	assert.Equal(t, report, exp.reports[0])

	assert.Equal(t, []string{"EWR", "LGA"}, report.Airports)
	assert.Len(t, report.Daily, 6)
	assert.Len(t, report.Monthly, 4)
	require.Len(t, report.Extremes, 2)
	assert.Equal(t, 1, report.Extremes[0].Rank)
	assert.Equal(t, "LGA", report.Extremes[1].Airport)
	assert.GreaterOrEqual(t, report.Extremes[0].WindSpeedMPS, report.Extremes[1].WindSpeedMPS)
	assert.Equal(t, runStart, report.GeneratedAt)

	assert.InDelta(t, 144, testutil.ToFloat64(metrics.RowsRead), 0)
	assert.InDelta(t, 144, testutil.ToFloat64(metrics.ObservationsKept), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RowsMalformed), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.SummaryRows.WithLabelValues("daily")), 0)
	assert.InDelta(t, float64(runStart.Unix()), testutil.ToFloat64(metrics.LastSuccessSeconds), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ExportDuration))
}

func TestPipeline_Run_FiltersAirports(t *testing.T) {
	path := writeMockFile(t, smallMockOptions())
	exp := &recordingExporter{name: "memory"}
	metrics := observability.NewMetrics()

	p := pipeline.New(openCSV(path, []string{"EWR"}), []pipeline.Exporter{exp}, discardLogger(), metrics, testOptions())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"EWR"}, report.Airports)
	assert.Empty(t, report.Extremes, "LGA was filtered out")
	assert.InDelta(t, 72, testutil.ToFloat64(metrics.RowsFiltered), 0)
}

func TestPipeline_Run_InputNotFound(t *testing.T) {
	exp := &recordingExporter{name: "memory"}
	missing := filepath.Join(t.TempDir(), "missing.csv")

	p := pipeline.New(openCSV(missing, nil), []pipeline.Exporter{exp}, discardLogger(), observability.NewMetrics(), testOptions())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	assert.Empty(t, exp.reports)
}

func TestPipeline_Run_NoUsableWindSpeeds(t *testing.T) {
	opts := smallMockOptions()
	opts.MissingRate = 1
	path := writeMockFile(t, opts)
	exp := &recordingExporter{name: "memory"}
	metrics := observability.NewMetrics()

	p := pipeline.New(openCSV(path, nil), []pipeline.Exporter{exp}, discardLogger(), metrics, testOptions())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataQuality)
	assert.Empty(t, exp.reports)
	assert.InDelta(t, 144, testutil.ToFloat64(metrics.ObservationsDrop), 0)
}

func TestPipeline_Run_SourceReadError(t *testing.T) {
	readErr := errors.New("disk went away")
	open := func() (pipeline.Source, error) { return &failingSource{err: readErr}, nil }
	exp := &recordingExporter{name: "memory"}

	p := pipeline.New(open, []pipeline.Exporter{exp}, discardLogger(), observability.NewMetrics(), testOptions())

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, readErr)
	assert.Empty(t, exp.reports)
}

func TestPipeline_Run_ExporterErrorDoesNotStopOthers(t *testing.T) {
	path := writeMockFile(t, smallMockOptions())
	broken := &recordingExporter{name: "broken", err: errors.New("disk full")}
	healthy := &recordingExporter{name: "healthy"}
	metrics := observability.NewMetrics()

	p := pipeline.New(openCSV(path, nil), []pipeline.Exporter{broken, healthy}, discardLogger(), metrics, testOptions())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export broken: disk full")
	assert.Len(t, healthy.reports, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ExportErrors.WithLabelValues("broken")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LastSuccessSeconds), 0)
}

func TestPipeline_Run_SinkTimeout(t *testing.T) {
	path := writeMockFile(t, smallMockOptions())
	opts := testOptions()
	opts.SinkTimeout = 20 * time.Millisecond

	p := pipeline.New(openCSV(path, nil), []pipeline.Exporter{blockingExporter{}}, discardLogger(), observability.NewMetrics(), opts)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_Run_CancelledBeforeExport(t *testing.T) {
	path := writeMockFile(t, smallMockOptions())
	exp := &recordingExporter{name: "memory"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New(openCSV(path, nil), []pipeline.Exporter{exp}, discardLogger(), observability.NewMetrics(), testOptions())

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exp.reports)
}

package pipeline_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/wind-speed-etl/internal/adapter/excel"
	"github.com/couchcryptid/wind-speed-etl/internal/adapter/tableau"
	"github.com/couchcryptid/wind-speed-etl/internal/domain"
	"github.com/couchcryptid/wind-speed-etl/internal/mockdata"
	"github.com/couchcryptid/wind-speed-etl/internal/observability"
	"github.com/couchcryptid/wind-speed-etl/internal/pipeline"
)

// smallMockOptions covers EWR and LGA from Jan 30 to Feb 1, 2013.
func smallMockOptions() mockdata.Options {
	return mockdata.Options{
		Airports: []string{"EWR", "LGA"},
		Start:    time.Date(2013, time.January, 30, 0, 0, 0, 0, time.UTC),
		Days:     3,
		Seed:     42,
	}
}

func writeMockFile(t *testing.T, opts mockdata.Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = mockdata.Generate(f, opts)
	require.NoError(t, err)
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestPipeline_MockYear_FileExports(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "weather.csv.gz")

	f, err := os.Create(input)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	bw := bufio.NewWriter(zw)
	n, err := mockdata.Generate(bw, mockdata.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 3*365*24, n)

	combined := filepath.Join(dir, "out", "wind_speeds.csv")
	tableauDir := filepath.Join(dir, "tableau")
	workbook := filepath.Join(dir, "out", "wind_speeds.xlsx")
	exporters := []pipeline.Exporter{
		tableau.NewCSVExporter(combined),
		tableau.NewDirExporter(tableauDir),
		excel.NewExporter(workbook),
	}

	opts := testOptions()
	opts.TopN = 20
	p := pipeline.New(openCSV(input, domain.DefaultAirports), exporters, discardLogger(), observability.NewMetrics(), opts)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAirports, report.Airports)
	assert.Len(t, report.Daily, 3*365)
	assert.Len(t, report.Monthly, 3*12)
	assert.Len(t, report.Extremes, 20)
	for _, d := range report.Daily {
		assert.GreaterOrEqual(t, d.MeanWindSpeedMPS, 0.0)
	}

	lines := readLines(t, combined)
	assert.Equal(t, "level,airport,date,month,rank,wind_speed_ms", lines[0])
	assert.Len(t, lines, 1+3*365+3*12+20)

	daily := readLines(t, filepath.Join(tableauDir, "daily_wind_speeds.csv"))
	assert.Len(t, daily, 1+3*365)
	monthly := readLines(t, filepath.Join(tableauDir, "monthly_wind_speeds.csv"))
	assert.Equal(t, "Month,EWR,JFK,LGA", monthly[0])
	assert.Len(t, monthly, 13)
	top := readLines(t, filepath.Join(tableauDir, "top_windiest_days.csv"))
	assert.Len(t, top, 21)

	wb, err := excelize.OpenFile(workbook)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(excel.ExtremesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 21)
}

func TestPipeline_FatalErrorWritesNothing(t *testing.T) {
	opts := smallMockOptions()
	opts.MissingRate = 1
	input := writeMockFile(t, opts)

	out := filepath.Join(t.TempDir(), "wind_speeds.csv")
	p := pipeline.New(openCSV(input, nil), []pipeline.Exporter{tableau.NewCSVExporter(out)}, discardLogger(), observability.NewMetrics(), testOptions())

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrDataQuality)
	assert.NoFileExists(t, out)
}

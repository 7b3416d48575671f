package tableau

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

// File names written by DirExporter, matching the dashboard's data sources.
const (
	DailyFile   = "daily_wind_speeds.csv"
	MonthlyFile = "monthly_wind_speeds.csv"
	TopDaysFile = "top_windiest_days.csv"
)

// CSVExporter writes the combined table to a single CSV file.
// It implements pipeline.Exporter.
type CSVExporter struct {
	path string
}

// NewCSVExporter creates an exporter for path.
func NewCSVExporter(path string) *CSVExporter {
	return &CSVExporter{path: path}
}

func (e *CSVExporter) Name() string { return "csv" }

func (e *CSVExporter) Export(_ context.Context, report domain.Report) error {
	df, err := CombinedTable(report)
	if err != nil {
		return err
	}
	return WriteCSV(e.path, df)
}

// DirExporter writes the daily, monthly pivot, and top-days tables into a
// directory. It implements pipeline.Exporter.
type DirExporter struct {
	dir string
}

// NewDirExporter creates an exporter writing into dir.
func NewDirExporter(dir string) *DirExporter {
	return &DirExporter{dir: dir}
}

func (e *DirExporter) Name() string { return "tableau" }

func (e *DirExporter) Export(_ context.Context, report domain.Report) error {
	tables := []struct {
		file  string
		build func(domain.Report) (dataframe.DataFrame, error)
	}{
		{DailyFile, DailyTable},
		{MonthlyFile, MonthlyPivot},
		{TopDaysFile, TopDaysTable},
	}

	// Build everything before touching the directory.
	frames := make([]dataframe.DataFrame, len(tables))
	for i, t := range tables {
		df, err := t.build(report)
		if err != nil {
			return fmt.Errorf("%s: %w", t.file, err)
		}
		frames[i] = df
	}

	for i, t := range tables {
		if err := WriteCSV(filepath.Join(e.dir, t.file), frames[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes df to path through a temporary file in the same directory,
// so readers never observe a partially written file.
func WriteCSV(path string, df dataframe.DataFrame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv: chmod temp file: %w", err)
	}
	if err := df.WriteCSV(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv: rename into %q: %w", path, err)
	}
	return nil
}

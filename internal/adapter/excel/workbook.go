// Package excel writes a wind-speed report as an .xlsx workbook with one sheet
// per derived table.
package excel

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

// Sheet names.
const (
	DailySheet    = "Daily"
	MonthlySheet  = "Monthly"
	ExtremesSheet = "Extremes"
)

// Exporter writes the report workbook to a file. It implements pipeline.Exporter.
type Exporter struct {
	path string
}

// NewExporter creates an exporter for path.
func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

func (e *Exporter) Name() string { return "xlsx" }

func (e *Exporter) Export(_ context.Context, report domain.Report) error {
	f, err := Build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("xlsx: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xlsx: write %q: %w", e.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("xlsx: close %q: %w", e.path, err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("xlsx: rename into %q: %w", e.path, err)
	}
	return nil
}

// Build lays the report out as a workbook. The caller must Close it.
func Build(report domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "NYC Airport Wind Speeds",
		Subject:     "Daily and monthly mean wind speed (m/s)",
		Creator:     "wind-speed-etl",
		Description: fmt.Sprintf("%d daily, %d monthly, %d ranked rows", len(report.Daily), len(report.Monthly), len(report.Extremes)),
		Created:     report.GeneratedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: set properties: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
		widths  []float64
	}{
		{DailySheet, []string{"Date", "Airport", "Wind Speed (m/s)", "Observations"}, dailyRows(report), []float64{14, 10, 18, 14}},
		{MonthlySheet, []string{"Month", "Airport", "Wind Speed (m/s)", "Days"}, monthlyRows(report), []float64{10, 10, 18, 8}},
		{ExtremesSheet, []string{"Rank", "Date", "Airport", "Wind Speed (m/s)"}, extremeRows(report), []float64{8, 14, 10, 18}},
	}

	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.headers, s.rows, s.widths); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("xlsx: sheet %s: %w", s.name, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(DailySheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeSheet(f *excelize.File, name string, headers []string, rows [][]any, widths []float64) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, w); err != nil {
			return err
		}
	}
	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func dailyRows(report domain.Report) [][]any {
	rows := make([][]any, len(report.Daily))
	for i, d := range report.Daily {
		rows[i] = []any{d.Date.String(), d.Airport, roundSpeed(d.MeanWindSpeedMPS), d.Observations}
	}
	return rows
}

func monthlyRows(report domain.Report) [][]any {
	rows := make([][]any, len(report.Monthly))
	for i, m := range report.Monthly {
		rows[i] = []any{int(m.Month), m.Airport, roundSpeed(m.MeanWindSpeedMPS), m.Days}
	}
	return rows
}

func extremeRows(report domain.Report) [][]any {
	rows := make([][]any, len(report.Extremes))
	for i, e := range report.Extremes {
		rows[i] = []any{e.Rank, e.Date.String(), e.Airport, roundSpeed(e.WindSpeedMPS)}
	}
	return rows
}

func roundSpeed(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

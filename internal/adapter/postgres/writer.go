// Package postgres persists wind-speed summaries to PostgreSQL. Each run
// replaces the previous contents of the summary tables in one transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_wind_speeds (
	airport       VARCHAR(8)       NOT NULL,
	date          DATE             NOT NULL,
	wind_speed_ms DOUBLE PRECISION NOT NULL,
	observations  INTEGER          NOT NULL,
	PRIMARY KEY (airport, date)
);

CREATE TABLE IF NOT EXISTS monthly_wind_speeds (
	airport       VARCHAR(8)       NOT NULL,
	month         SMALLINT         NOT NULL CHECK (month BETWEEN 1 AND 12),
	wind_speed_ms DOUBLE PRECISION NOT NULL,
	days          INTEGER          NOT NULL,
	PRIMARY KEY (airport, month)
);

CREATE TABLE IF NOT EXISTS top_windiest_days (
	airport       VARCHAR(8)       NOT NULL,
	rank          INTEGER          NOT NULL,
	date          DATE             NOT NULL,
	wind_speed_ms DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (airport, rank)
);
`

const (
	insertDaily   = `INSERT INTO daily_wind_speeds (airport, date, wind_speed_ms, observations) VALUES ($1, $2, $3, $4)`
	insertMonthly = `INSERT INTO monthly_wind_speeds (airport, month, wind_speed_ms, days) VALUES ($1, $2, $3, $4)`
	insertExtreme = `INSERT INTO top_windiest_days (airport, rank, date, wind_speed_ms) VALUES ($1, $2, $3, $4)`
)

// summaryTables are cleared before every load, children of no foreign keys.
var summaryTables = []string{"daily_wind_speeds", "monthly_wind_speeds", "top_windiest_days"}

// Writer loads report tables into PostgreSQL. It implements pipeline.Exporter.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWriter opens a connection pool, verifies it, and creates the schema.
func NewWriter(ctx context.Context, dsn string, logger *slog.Logger) (*Writer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	w := &Writer{db: db, logger: logger}
	if err := w.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return w, nil
}

func (w *Writer) migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, schema)
	return err
}

func (w *Writer) Name() string { return "postgres" }

// Export replaces all summary rows with the contents of report.
func (w *Writer) Export(ctx context.Context, report domain.Report) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range summaryTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", table, err)
		}
	}

	if err := insertRows(ctx, tx, insertDaily, dailyArgs(report)); err != nil {
		return fmt.Errorf("postgres: insert daily: %w", err)
	}
	if err := insertRows(ctx, tx, insertMonthly, monthlyArgs(report)); err != nil {
		return fmt.Errorf("postgres: insert monthly: %w", err)
	}
	if err := insertRows(ctx, tx, insertExtreme, extremeArgs(report)); err != nil {
		return fmt.Errorf("postgres: insert extremes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	w.logger.Info("postgres tables replaced",
		"daily", len(report.Daily), "monthly", len(report.Monthly), "extremes", len(report.Extremes))
	return nil
}

// Close releases the connection pool.
func (w *Writer) Close() error {
	return w.db.Close()
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func dailyArgs(report domain.Report) [][]any {
	rows := make([][]any, len(report.Daily))
	for i, d := range report.Daily {
		rows[i] = []any{d.Airport, d.Date.Time(), d.MeanWindSpeedMPS, d.Observations}
	}
	return rows
}

func monthlyArgs(report domain.Report) [][]any {
	rows := make([][]any, len(report.Monthly))
	for i, m := range report.Monthly {
		rows[i] = []any{m.Airport, int(m.Month), m.MeanWindSpeedMPS, m.Days}
	}
	return rows
}

func extremeArgs(report domain.Report) [][]any {
	rows := make([][]any, len(report.Extremes))
	for i, e := range report.Extremes {
		rows[i] = []any{e.Airport, e.Rank, e.Date.Time(), e.WindSpeedMPS}
	}
	return rows
}

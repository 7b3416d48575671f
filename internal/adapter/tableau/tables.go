// Package tableau shapes a wind-speed report into flat tables and writes them
// as CSV files for import into Tableau.
package tableau

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

// Level values of the combined table.
const (
	LevelDaily   = "daily"
	LevelMonthly = "monthly"
	LevelExtreme = "extreme"
)

// CombinedTable stacks every derived table into one tidy table with columns
// level, airport, date, month, rank, wind_speed_ms. Cells that do not apply
// to a level are empty.
func CombinedTable(report domain.Report) (dataframe.DataFrame, error) {
	n := len(report.Daily) + len(report.Monthly) + len(report.Extremes)
	var (
		level   = make([]string, 0, n)
		airport = make([]string, 0, n)
		date    = make([]string, 0, n)
		month   = make([]string, 0, n)
		rank    = make([]string, 0, n)
		speed   = make([]string, 0, n)
	)
	add := func(lv, ap, dt, mo, rk string, v float64) {
		level = append(level, lv)
		airport = append(airport, ap)
		date = append(date, dt)
		month = append(month, mo)
		rank = append(rank, rk)
		speed = append(speed, FormatSpeed(v))
	}

	for _, d := range report.Daily {
		add(LevelDaily, d.Airport, d.Date.String(), strconv.Itoa(int(d.Date.Month)), "", d.MeanWindSpeedMPS)
	}
	for _, m := range report.Monthly {
		add(LevelMonthly, m.Airport, "", strconv.Itoa(int(m.Month)), "", m.MeanWindSpeedMPS)
	}
	for _, e := range report.Extremes {
		add(LevelExtreme, e.Airport, e.Date.String(), strconv.Itoa(int(e.Date.Month)), strconv.Itoa(e.Rank), e.WindSpeedMPS)
	}

	return build(
		series.New(level, series.String, "level"),
		series.New(airport, series.String, "airport"),
		series.New(date, series.String, "date"),
		series.New(month, series.String, "month"),
		series.New(rank, series.String, "rank"),
		series.New(speed, series.String, "wind_speed_ms"),
	)
}

// DailyTable has one row per (date, airport): Date, Airport, Wind_Speed_ms.
func DailyTable(report domain.Report) (dataframe.DataFrame, error) {
	dates := make([]string, len(report.Daily))
	airports := make([]string, len(report.Daily))
	speeds := make([]string, len(report.Daily))
	for i, d := range report.Daily {
		dates[i] = d.Date.String()
		airports[i] = d.Airport
		speeds[i] = FormatSpeed(d.MeanWindSpeedMPS)
	}
	return build(
		series.New(dates, series.String, "Date"),
		series.New(airports, series.String, "Airport"),
		series.New(speeds, series.String, "Wind_Speed_ms"),
	)
}

// MonthlyPivot has one row per month and one column per airport. Airports
// with no data for a month leave the cell empty.
func MonthlyPivot(report domain.Report) (dataframe.DataFrame, error) {
	// report.Monthly is sorted by month, so equal months are adjacent.
	var months []time.Month
	cells := make(map[domain.MonthKey]float64, len(report.Monthly))
	for _, m := range report.Monthly {
		if len(months) == 0 || months[len(months)-1] != m.Month {
			months = append(months, m.Month)
		}
		cells[domain.MonthKey{Airport: m.Airport, Month: m.Month}] = m.MeanWindSpeedMPS
	}

	monthNumbers := make([]int, len(months))
	for i, m := range months {
		monthNumbers[i] = int(m)
	}
	cols := []series.Series{series.New(monthNumbers, series.Int, "Month")}
	for _, airport := range report.Airports {
		values := make([]string, len(months))
		for i, month := range months {
			if v, ok := cells[domain.MonthKey{Airport: airport, Month: month}]; ok {
				values[i] = FormatSpeed(v)
			}
		}
		cols = append(cols, series.New(values, series.String, airport))
	}
	return build(cols...)
}

// TopDaysTable lists ranked extremes: Rank, Date, Wind_Speed_ms, Airport.
func TopDaysTable(report domain.Report) (dataframe.DataFrame, error) {
	ranks := make([]int, len(report.Extremes))
	dates := make([]string, len(report.Extremes))
	speeds := make([]string, len(report.Extremes))
	airports := make([]string, len(report.Extremes))
	for i, e := range report.Extremes {
		ranks[i] = e.Rank
		dates[i] = e.Date.String()
		speeds[i] = FormatSpeed(e.WindSpeedMPS)
		airports[i] = e.Airport
	}
	return build(
		series.New(ranks, series.Int, "Rank"),
		series.New(dates, series.String, "Date"),
		series.New(speeds, series.String, "Wind_Speed_ms"),
		series.New(airports, series.String, "Airport"),
	)
}

// FormatSpeed renders a speed in m/s with four decimals.
func FormatSpeed(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func build(cols ...series.Series) (dataframe.DataFrame, error) {
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build table: %w", df.Err)
	}
	return df, nil
}

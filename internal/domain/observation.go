package domain

import (
	"errors"
	"fmt"
	"time"
)

// MPHToMPS converts miles per hour to meters per second.
const MPHToMPS = 0.44704

// DefaultAirports are the origins present in the nycflights13 weather table.
var DefaultAirports = []string{"EWR", "JFK", "LGA"}

var (
	// ErrInputNotFound means the raw data source could not be located or opened.
	ErrInputNotFound = errors.New("input not found")

	// ErrDataQuality means no usable observation survived cleaning, or the
	// input does not carry the columns needed to build one.
	ErrDataQuality = errors.New("data quality")
)

// MalformedRowError describes a single input row that could not be parsed.
// It is never returned to callers of the pipeline; rows are dropped and counted.
type MalformedRowError struct {
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %s", e.Line, e.Reason)
}

// Observation is one raw hourly reading. WindSpeedRaw holds the source text
// verbatim; it may be empty, "NA", or otherwise non-numeric.
type Observation struct {
	Airport      string
	Timestamp    time.Time
	WindSpeedRaw string
}

// CleanObservation is an Observation whose wind speed parsed as a
// non-negative number and was converted to meters per second.
type CleanObservation struct {
	Airport      string
	Timestamp    time.Time
	WindSpeedMPS float64
}

// Date is a calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t's wall clock.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("parse date %q: %w", b, err)
	}
	*d = DateOf(t)
	return nil
}

// DayKey identifies a DailySummary.
type DayKey struct {
	Airport string
	Date    Date
}

// MonthKey identifies a MonthlySummary. The year is intentionally absent.
type MonthKey struct {
	Airport string
	Month   time.Month
}

// DailySummary is the mean wind speed of one airport on one date.
type DailySummary struct {
	Airport          string  `json:"airport"`
	Date             Date    `json:"date"`
	MeanWindSpeedMPS float64 `json:"wind_speed_ms"`
	Observations     int     `json:"observations"`
}

// MonthlySummary is the mean of the daily means of one airport in one month.
type MonthlySummary struct {
	Airport          string     `json:"airport"`
	Month            time.Month `json:"month"`
	MeanWindSpeedMPS float64    `json:"wind_speed_ms"`
	Days             int        `json:"days"`
}

// RankedExtreme places one daily mean on an airport's leaderboard.
type RankedExtreme struct {
	Airport      string  `json:"airport"`
	Date         Date    `json:"date"`
	WindSpeedMPS float64 `json:"wind_speed_ms"`
	Rank         int     `json:"rank"`
}

// Report bundles every derived table of one run in a deterministic order.
type Report struct {
	Daily       []DailySummary
	Monthly     []MonthlySummary
	Extremes    []RankedExtreme
	Airports    []string
	GeneratedAt time.Time
}

// IngestStats counts what happened to input rows while reading a file.
type IngestStats struct {
	Rows      int // data rows read, excluding the header
	Emitted   int // observations yielded
	Malformed int // rows that failed to parse
	Filtered  int // rows for airports outside the configured set
}

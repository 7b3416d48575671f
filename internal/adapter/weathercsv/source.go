// Package weathercsv reads hourly weather observations from CSV files shaped
// like the nycflights13 weather table, optionally gzip-compressed.
package weathercsv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

var (
	airportColumns   = []string{"origin", "airport", "airport_code"}
	windColumns      = []string{"wind_speed", "wind_speed_mph"}
	timestampColumns = []string{"time_hour", "timestamp", "datetime"}

	timestampLayouts = []string{
		time.DateTime,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05-07",
		"2006-01-02 15:04:05Z07:00",
	}
)

// Stats counts what happened to input rows during iteration.
type Stats = domain.IngestStats

// Source streams observations from one CSV file. It is single-use: call
// Observations once, then check Err.
type Source struct {
	path     string
	file     *os.File
	airports map[string]bool
	logger   *slog.Logger

	err   error
	stats Stats
}

// Open opens path for reading. Only rows whose airport is in airports are
// emitted; an empty list accepts every airport.
func Open(path string, airports []string, logger *slog.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", domain.ErrInputNotFound, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %q: %w", domain.ErrInputNotFound, path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q is a directory", domain.ErrInputNotFound, path)
	}

	var allowed map[string]bool
	if len(airports) > 0 {
		allowed = make(map[string]bool, len(airports))
		for _, a := range airports {
			allowed[strings.ToUpper(strings.TrimSpace(a))] = true
		}
	}

	return &Source{path: path, file: f, airports: allowed, logger: logger}, nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.file.Close()
}

// Err returns the first fatal error met during iteration.
func (s *Source) Err() error { return s.err }

// Stats returns row counters accumulated during iteration.
func (s *Source) Stats() Stats { return s.stats }

// Observations yields parsed rows in file order. Malformed rows are dropped
// and counted; read failures stop iteration and are reported by Err.
func (s *Source) Observations() iter.Seq[domain.Observation] {
	return func(yield func(domain.Observation) bool) {
		r, err := decodedReader(s.file)
		if err != nil {
			s.err = fmt.Errorf("read %q: %w", s.path, err)
			return
		}

		cr := csv.NewReader(r)
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			s.err = fmt.Errorf("read header of %q: %w", s.path, err)
			return
		}
		cols, err := resolveColumns(header)
		if err != nil {
			s.err = fmt.Errorf("%w: %s: %w", domain.ErrDataQuality, s.path, err)
			return
		}

		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					s.err = fmt.Errorf("read %q: %w", s.path, err)
					return
				}
				s.stats.Rows++
				s.malformed(&domain.MalformedRowError{Line: parseErr.Line, Reason: parseErr.Err.Error()})
				continue
			}
			s.stats.Rows++

			line, _ := cr.FieldPos(0)
			obs, rowErr := cols.parse(record, line)
			if rowErr != nil {
				s.malformed(rowErr)
				continue
			}
			if s.airports != nil && !s.airports[obs.Airport] {
				s.stats.Filtered++
				continue
			}

			s.stats.Emitted++
			if !yield(obs) {
				return
			}
		}
	}
}

func (s *Source) malformed(err *domain.MalformedRowError) {
	s.stats.Malformed++
	s.logger.Debug("skipping malformed row", "path", s.path, "line", err.Line, "reason", err.Reason)
}

// decodedReader transparently gunzips compressed input and strips a UTF-8 BOM.
func decodedReader(f io.Reader) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var r io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		r = zr
	}
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
}

// columns holds header positions; -1 marks an absent column.
type columns struct {
	width                  int
	airport, wind          int
	year, month, day, hour int
	timestamp              int
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}

	c := columns{
		width:     len(header),
		airport:   find(airportColumns...),
		wind:      find(windColumns...),
		year:      find("year"),
		month:     find("month"),
		day:       find("day"),
		hour:      find("hour"),
		timestamp: find(timestampColumns...),
	}

	var missing []string
	if c.airport < 0 {
		missing = append(missing, "airport ("+strings.Join(airportColumns, "|")+")")
	}
	if c.wind < 0 {
		missing = append(missing, "wind speed ("+strings.Join(windColumns, "|")+")")
	}
	if !c.hasDateParts() && c.timestamp < 0 {
		missing = append(missing, "date (year,month,day or "+strings.Join(timestampColumns, "|")+")")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

func (c columns) hasDateParts() bool {
	return c.year >= 0 && c.month >= 0 && c.day >= 0
}

func (c columns) parse(record []string, line int) (domain.Observation, *domain.MalformedRowError) {
	if len(record) != c.width {
		return domain.Observation{}, &domain.MalformedRowError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d fields, got %d", c.width, len(record)),
		}
	}

	airport := strings.ToUpper(strings.TrimSpace(record[c.airport]))
	if airport == "" {
		return domain.Observation{}, &domain.MalformedRowError{Line: line, Reason: "empty airport code"}
	}

	ts, err := c.timestampOf(record)
	if err != nil {
		return domain.Observation{}, &domain.MalformedRowError{Line: line, Reason: err.Error()}
	}

	return domain.Observation{
		Airport:      airport,
		Timestamp:    ts,
		WindSpeedRaw: record[c.wind],
	}, nil
}

func (c columns) timestampOf(record []string) (time.Time, error) {
	if !c.hasDateParts() {
		return parseTimestamp(record[c.timestamp])
	}

	year, err := atoiField("year", record[c.year])
	if err != nil {
		return time.Time{}, err
	}
	month, err := atoiField("month", record[c.month])
	if err != nil {
		return time.Time{}, err
	}
	day, err := atoiField("day", record[c.day])
	if err != nil {
		return time.Time{}, err
	}
	hour := 0
	if c.hour >= 0 {
		if hour, err = atoiField("hour", record[c.hour]); err != nil {
			return time.Time{}, err
		}
	}

	if month < 1 || month > 12 || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d hour %d", year, month, day, hour)
	}
	ts := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if ts.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", year, month, day)
	}
	return ts, nil
}

func atoiField(name, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// parseTimestamp keeps the wall clock of the reading; the offset is dropped so
// the calendar date matches the station's local day.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

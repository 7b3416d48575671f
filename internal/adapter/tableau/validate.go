package tableau

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

// CombinedColumns is the header of the combined table.
var CombinedColumns = []string{"level", "airport", "date", "month", "rank", "wind_speed_ms"}

// CombinedStats counts rows per level of a validated combined file.
type CombinedStats struct {
	Daily    int
	Monthly  int
	Extremes int
	Airports []string
}

// ValidateCombined reads a combined table and checks that every row is well
// formed: speeds are finite and non-negative, dates and months agree, and
// ranks run 1..n per airport with non-increasing speeds. All problems are
// reported together, wrapped in domain.ErrDataQuality.
func ValidateCombined(r io.Reader) (CombinedStats, error) {
	df := dataframe.ReadCSV(r, dataframe.DetectTypes(false), dataframe.NaNValues(nil))
	if df.Err != nil {
		return CombinedStats{}, fmt.Errorf("%w: read combined table: %w", domain.ErrDataQuality, df.Err)
	}
	names := df.Names()
	for _, col := range CombinedColumns {
		if !slices.Contains(names, col) {
			return CombinedStats{}, fmt.Errorf("%w: missing column %q", domain.ErrDataQuality, col)
		}
	}

	var (
		levels   = df.Col("level").Records()
		airports = df.Col("airport").Records()
		dates    = df.Col("date").Records()
		months   = df.Col("month").Records()
		ranks    = df.Col("rank").Records()
		speeds   = df.Col("wind_speed_ms").Records()
	)

	var (
		stats    CombinedStats
		problems []error
		lastRank = map[string]int{}
		lastTop  = map[string]float64{}
	)
	fail := func(row int, format string, args ...any) {
		// Row 1 is the header.
		problems = append(problems, fmt.Errorf("row %d: %s", row+2, fmt.Sprintf(format, args...)))
	}

	for i := range levels {
		speed, err := strconv.ParseFloat(speeds[i], 64)
		if err != nil || math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
			fail(i, "invalid wind speed %q", speeds[i])
			continue
		}
		if airports[i] == "" {
			fail(i, "empty airport")
			continue
		}
		if !slices.Contains(stats.Airports, airports[i]) {
			stats.Airports = append(stats.Airports, airports[i])
		}

		switch levels[i] {
		case LevelDaily:
			stats.Daily++
			d, err := time.Parse(time.DateOnly, dates[i])
			if err != nil {
				fail(i, "invalid date %q", dates[i])
				continue
			}
			if months[i] != strconv.Itoa(int(d.Month())) {
				fail(i, "month %q does not match date %s", months[i], dates[i])
			}
		case LevelMonthly:
			stats.Monthly++
			m, err := strconv.Atoi(months[i])
			if err != nil || m < 1 || m > 12 {
				fail(i, "invalid month %q", months[i])
			}
			if dates[i] != "" || ranks[i] != "" {
				fail(i, "monthly row carries a date or rank")
			}
		case LevelExtreme:
			stats.Extremes++
			if _, err := time.Parse(time.DateOnly, dates[i]); err != nil {
				fail(i, "invalid date %q", dates[i])
			}
			rank, err := strconv.Atoi(ranks[i])
			if err != nil || rank != lastRank[airports[i]]+1 {
				fail(i, "rank %q out of sequence for %s", ranks[i], airports[i])
			}
			if rank > 1 && speed > lastTop[airports[i]] {
				fail(i, "speed %s exceeds rank %d for %s", speeds[i], rank-1, airports[i])
			}
			lastRank[airports[i]] = rank
			lastTop[airports[i]] = speed
		default:
			fail(i, "unknown level %q", levels[i])
		}
	}

	slices.Sort(stats.Airports)
	if len(problems) > 0 {
		return stats, fmt.Errorf("%w: %d invalid rows: %w", domain.ErrDataQuality, len(problems), errors.Join(problems...))
	}
	return stats, nil
}

// Package mockdata generates synthetic hourly weather files in the
// nycflights13 layout. Output is fully determined by the seed.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"time"
)

// Header matches the nycflights13 weather table.
var Header = []string{
	"origin", "year", "month", "day", "hour",
	"temp", "dewp", "humid", "wind_dir", "wind_speed", "wind_gust",
	"precip", "pressure", "visib", "time_hour",
}

// knotsToMPH is the factor nycflights13 used to convert METAR knots, which is
// why its wind speeds are multiples of 1.15078.
const knotsToMPH = 1.15078

// Options controls the shape of the generated file.
type Options struct {
	Airports []string
	Start    time.Time // first hour, truncated to the hour
	Days     int
	Seed     uint64
	// MissingRate is the fraction of rows whose wind_speed is "NA".
	MissingRate float64
}

// DefaultOptions covers the three NYC airports for all of 2013.
func DefaultOptions() Options {
	return Options{
		Airports:    []string{"EWR", "JFK", "LGA"},
		Start:       time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC),
		Days:        365,
		Seed:        2013,
		MissingRate: 0.001,
	}
}

// Generate writes the header and one row per airport per hour to w and
// returns the number of data rows written.
func Generate(w io.Writer, opts Options) (int, error) {
	if opts.Days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	if len(opts.Airports) == 0 {
		return 0, fmt.Errorf("at least one airport is required")
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	start := opts.Start.Truncate(time.Hour)
	rows := 0
	for _, airport := range opts.Airports {
		base := baseKnots(airport)
		for h := range opts.Days * 24 {
			ts := start.Add(time.Duration(h) * time.Hour)
			if err := cw.Write(row(rng, airport, ts, base, opts.MissingRate)); err != nil {
				return rows, err
			}
			rows++
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

func row(rng *rand.Rand, airport string, ts time.Time, base int, missingRate float64) []string {
	wind := "NA"
	if rng.Float64() >= missingRate {
		knots := max(0, base+seasonalKnots(ts.Month())+rng.IntN(11)-5)
		wind = formatFloat(float64(knots) * knotsToMPH)
	}

	temp := 35 + 45*seasonal(ts.Month()) + rng.Float64()*10
	dewp := temp - 5 - rng.Float64()*15

	return []string{
		airport,
		strconv.Itoa(ts.Year()),
		strconv.Itoa(int(ts.Month())),
		strconv.Itoa(ts.Day()),
		strconv.Itoa(ts.Hour()),
		formatFloat(temp),
		formatFloat(dewp),
		formatFloat(40 + rng.Float64()*55),
		strconv.Itoa(rng.IntN(36) * 10),
		wind,
		"NA",
		"0",
		formatFloat(1000 + rng.Float64()*30),
		"10",
		ts.Format(time.DateTime),
	}
}

// baseKnots gives each airport a distinct typical wind so rankings differ.
func baseKnots(airport string) int {
	switch airport {
	case "JFK":
		return 11
	case "LGA":
		return 10
	case "EWR":
		return 9
	default:
		return 8
	}
}

// seasonalKnots adds winter gustiness.
func seasonalKnots(m time.Month) int {
	switch m {
	case time.December, time.January, time.February, time.March:
		return 3
	case time.June, time.July, time.August:
		return -2
	default:
		return 0
	}
}

// seasonal is 0 in January and 1 in July.
func seasonal(m time.Month) float64 {
	d := int(m) - 1
	if d > 6 {
		d = 12 - d
	}
	return float64(d) / 6
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

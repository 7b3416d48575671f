package domain

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// AggregateDaily averages clean observations per (airport, calendar date).
// Only keys with at least one observation appear in the result.
func AggregateDaily(clean []CleanObservation) map[DayKey]DailySummary {
	groups := make(map[DayKey][]float64)
	for _, c := range clean {
		key := DayKey{Airport: c.Airport, Date: DateOf(c.Timestamp)}
		groups[key] = append(groups[key], c.WindSpeedMPS)
	}

	daily := make(map[DayKey]DailySummary, len(groups))
	for key, speeds := range groups {
		daily[key] = DailySummary{
			Airport:          key.Airport,
			Date:             key.Date,
			MeanWindSpeedMPS: stat.Mean(speeds, nil),
			Observations:     len(speeds),
		}
	}
	return daily
}

// AggregateMonthly averages daily means per (airport, month-of-year). Each
// observed day has equal weight, independent of its hourly observation count.
func AggregateMonthly(daily map[DayKey]DailySummary) map[MonthKey]MonthlySummary {
	groups := make(map[MonthKey][]float64)
	// Sum in date order so the floating-point result does not depend on map order.
	for _, d := range SortedDaily(daily) {
		key := MonthKey{Airport: d.Airport, Month: d.Date.Month}
		groups[key] = append(groups[key], d.MeanWindSpeedMPS)
	}

	monthly := make(map[MonthKey]MonthlySummary, len(groups))
	for key, means := range groups {
		monthly[key] = MonthlySummary{
			Airport:          key.Airport,
			Month:            key.Month,
			MeanWindSpeedMPS: stat.Mean(means, nil),
			Days:             len(means),
		}
	}
	return monthly
}

// RankExtremes returns the topN windiest days of one airport, fastest first.
// Equal speeds are ordered by the earlier date. A non-positive topN yields nil.
func RankExtremes(daily map[DayKey]DailySummary, airport string, topN int) []RankedExtreme {
	if topN <= 0 {
		return nil
	}

	var days []DailySummary
	for _, d := range daily {
		if d.Airport == airport {
			days = append(days, d)
		}
	}
	slices.SortFunc(days, func(a, b DailySummary) int {
		if c := cmp.Compare(b.MeanWindSpeedMPS, a.MeanWindSpeedMPS); c != 0 {
			return c
		}
		return compareDates(a.Date, b.Date)
	})
	if len(days) > topN {
		days = days[:topN]
	}

	ranked := make([]RankedExtreme, len(days))
	for i, d := range days {
		ranked[i] = RankedExtreme{
			Airport:      d.Airport,
			Date:         d.Date,
			WindSpeedMPS: d.MeanWindSpeedMPS,
			Rank:         i + 1,
		}
	}
	return ranked
}

// SortedDaily flattens daily summaries ordered by date, then airport.
func SortedDaily(daily map[DayKey]DailySummary) []DailySummary {
	out := make([]DailySummary, 0, len(daily))
	for _, d := range daily {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b DailySummary) int {
		if c := compareDates(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Airport, b.Airport)
	})
	return out
}

// SortedMonthly flattens monthly summaries ordered by month, then airport.
func SortedMonthly(monthly map[MonthKey]MonthlySummary) []MonthlySummary {
	out := make([]MonthlySummary, 0, len(monthly))
	for _, m := range monthly {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b MonthlySummary) int {
		if c := cmp.Compare(a.Month, b.Month); c != 0 {
			return c
		}
		return cmp.Compare(a.Airport, b.Airport)
	})
	return out
}

// BuildReport runs the aggregation stages over clean observations and ranks
// the windiest days of each airport in extremesAirports.
func BuildReport(clean []CleanObservation, extremesAirports []string, topN int) Report {
	daily := AggregateDaily(clean)
	monthly := AggregateMonthly(daily)

	var extremes []RankedExtreme
	for _, airport := range extremesAirports {
		extremes = append(extremes, RankExtremes(daily, airport, topN)...)
	}

	return Report{
		Daily:       SortedDaily(daily),
		Monthly:     SortedMonthly(monthly),
		Extremes:    extremes,
		Airports:    airportsOf(daily),
		GeneratedAt: clock.Now(),
	}
}

func airportsOf(daily map[DayKey]DailySummary) []string {
	var airports []string
	for key := range daily {
		if !slices.Contains(airports, key.Airport) {
			airports = append(airports, key.Airport)
		}
	}
	slices.Sort(airports)
	return airports
}

func compareDates(a, b Date) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

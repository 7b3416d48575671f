package domain

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// Clean keeps observations whose wind speed is a finite, non-negative number
// and converts it to meters per second. Rejected rows are dropped silently.
// It fails with ErrDataQuality only when nothing survives.
func Clean(observations iter.Seq[Observation]) ([]CleanObservation, error) {
	var out []CleanObservation
	seen := 0
	for obs := range observations {
		seen++
		mph, ok := ParseWindSpeed(obs.WindSpeedRaw)
		if !ok {
			continue
		}
		out = append(out, CleanObservation{
			Airport:      obs.Airport,
			Timestamp:    obs.Timestamp,
			WindSpeedMPS: ConvertMPH(mph),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable wind speed in %d observations", ErrDataQuality, seen)
	}
	return out, nil
}

// ParseWindSpeed parses a raw mph reading. It reports false for empty, "NA",
// non-numeric, non-finite, or negative values.
func ParseWindSpeed(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "NA") {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// ConvertMPH converts miles per hour to meters per second.
func ConvertMPH(mph float64) float64 {
	return mph * MPHToMPS
}

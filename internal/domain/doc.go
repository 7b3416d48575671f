// Package domain models hourly airport weather observations and the wind-speed
// summaries derived from them.
//
// # Data Source
//
// Observations come from the nycflights13 "weather" table: one row per airport
// per hour for the three New York City airports (EWR, JFK, LGA) during 2013,
// 26,130 rows in total. The table is distributed as CSV, usually gzip-compressed.
//
// # Conventions
//
// Columns used:
//
//	origin      airport code, e.g. "LGA"
//	year        calendar year of the reading, e.g. 2013
//	month       1-12
//	day         1-31
//	hour        0-23 (local wall clock)
//	wind_speed  miles per hour, "NA" or empty when the station reported nothing
//	time_hour   "2013-01-01 01:00:00"; used only when year/month/day are absent
//
// Wind speed is converted to meters per second with the exact factor 0.44704
// (1 mph = 1609.344 m / 3600 s).
//
// # Aggregation
//
// Daily summaries average the hourly readings of one airport on one calendar
// date. Monthly summaries average the daily means of one airport across a
// calendar month, so every observed day carries equal weight regardless of how
// many hourly readings it had. Months are keyed by month-of-year only; the
// source dataset covers a single year.
//
// Extremes rank the daily means of one airport in descending order. Equal means
// are ordered by the earlier date first.
package domain

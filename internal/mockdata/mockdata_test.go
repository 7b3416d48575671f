package mockdata

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	return Options{
		Airports: []string{"EWR", "LGA"},
		Start:    time.Date(2013, time.January, 30, 0, 0, 0, 0, time.UTC),
		Days:     3,
		Seed:     7,
	}
}

func TestGenerate_Shape(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(&buf, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 2*3*24, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, n+1)
	assert.Equal(t, Header, records[0])

	first := records[1]
	assert.Equal(t, "EWR", first[0])
	assert.Equal(t, "2013-01-30 00:00:00", first[14])

	// Rows cross the month boundary.
	last := records[len(records)-1]
	assert.Equal(t, "LGA", last[0])
	assert.Equal(t, []string{"2013", "2", "1", "23"}, last[1:5])
	assert.Equal(t, "2013-02-01 23:00:00", last[14])

	for _, r := range records[1:] {
		v, err := strconv.ParseFloat(r[9], 64)
		require.NoError(t, err, "MissingRate is zero")
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	_, err := Generate(&a, smallOptions())
	require.NoError(t, err)
	_, err = Generate(&b, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())

	other := smallOptions()
	other.Seed = 8
	var c bytes.Buffer
	_, err = Generate(&c, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), c.String())
}

func TestGenerate_MissingValues(t *testing.T) {
	opts := smallOptions()
	opts.MissingRate = 1

	var buf bytes.Buffer
	_, err := Generate(&buf, opts)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	for _, r := range records[1:] {
		assert.Equal(t, "NA", r[9])
	}
}

func TestGenerate_InvalidOptions(t *testing.T) {
	var buf bytes.Buffer

	_, err := Generate(&buf, Options{Airports: []string{"EWR"}})
	require.Error(t, err)

	_, err = Generate(&buf, Options{Days: 1})
	require.Error(t, err)
}

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 5), d)
	assert.Equal(t, "2024-03-05", d.String())

	_, err = ParseDate("05.03.2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestDateArithmeticAcrossBoundaries(t *testing.T) {
	assert.Equal(t, MustParseDate("2024-03-01"), MustParseDate("2024-02-29").Next(), "leap day")
	assert.Equal(t, MustParseDate("2024-02-29"), MustParseDate("2024-03-01").Prev())
	assert.Equal(t, MustParseDate("2025-01-01"), MustParseDate("2024-12-31").Next(), "year boundary")
	assert.Equal(t, MustParseDate("2024-03-10"), MustParseDate("2024-02-29").AddDays(10))
}

func TestDateComparisons(t *testing.T) {
	a := MustParseDate("2024-03-01")
	b := MustParseDate("2024-03-05")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, 4, a.DaysUntil(b))
	assert.Equal(t, -4, b.DaysUntil(a))
}

func TestDateZero(t *testing.T) {
	var zero Date
	assert.True(t, zero.IsZero())
	assert.False(t, MustParseDate("2024-03-01").IsZero())
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Day Date `json:"day"`
	}

	raw, err := json.Marshal(payload{Day: MustParseDate("2024-03-05")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-03-05"}`, string(raw))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-03-05"}`), &decoded))
	assert.Equal(t, MustParseDate("2024-03-05"), decoded.Day)

	assert.Error(t, json.Unmarshal([]byte(`{"day":20240305}`), &decoded))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.March, 5, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, MustParseDate("2024-03-05"), d)

	require.NoError(t, d.Scan("2024-03-06"))
	assert.Equal(t, MustParseDate("2024-03-06"), d)

	assert.Error(t, d.Scan(42))
}

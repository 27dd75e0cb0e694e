package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateInput(t *testing.T) {
	loc := LoadLocation("")
	require.Equal(t, DefaultTimezone, loc.String())

	d, err := ParseDateInput("05/03/2025", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, loc), d)

	d, err = ParseDateInput("2025-03-05", loc)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day())

	_, err = ParseDateInput("2025-13-40", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDateInput("", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), AddMonths(jan31, 1))
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), AddMonths(jan31, 3))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), AddMonths(time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), 12).AddDate(0, 0, 1))
}

func TestMonthBounds(t *testing.T) {
	mid := time.Date(2025, 2, 14, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(mid))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), EndOfMonth(mid))
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), EndOfDay(mid))
}

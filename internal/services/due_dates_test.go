package services

import (
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDueDate(t *testing.T) {
	loc := core.LoadLocation(core.DefaultTimezone)
	base := time.Date(2024, 1, 31, 9, 0, 0, 0, loc)

	tests := []struct {
		name      string
		frequency core.Frequency
		want      time.Time
	}{
		{"once stays put", core.Once, base},
		{"weekly adds seven days", core.Weekly, time.Date(2024, 2, 7, 9, 0, 0, 0, loc)},
		{"monthly clamps to month end", core.Monthly, time.Date(2024, 2, 29, 9, 0, 0, 0, loc)},
		{"quarterly adds three months", core.Quarterly, time.Date(2024, 4, 30, 9, 0, 0, 0, loc)},
		{"yearly adds twelve months", core.Yearly, time.Date(2025, 1, 31, 9, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(base, tt.frequency, loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNextDueDate_UnknownFrequency(t *testing.T) {
	_, err := NextDueDate(time.Now(), core.Frequency("FORTNIGHTLY"), time.UTC)
	assert.Error(t, err)
}

type fortnightly struct{}

func (fortnightly) Next(current time.Time, loc *time.Location) time.Time {
	return current.In(loc).AddDate(0, 0, 14)
}

func TestRegisterDueDateAdvancer(t *testing.T) {
	freq := core.Frequency("FORTNIGHTLY")
	RegisterDueDateAdvancer(freq, fortnightly{})
	t.Cleanup(func() { delete(dueDateStrategies, freq) })

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := NextDueDate(base, freq, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Day())
}

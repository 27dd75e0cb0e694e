// Package services holds the application use cases. Each service depends on
// narrow store interfaces that the SQLite repository satisfies.
//
// This file implements the Strategy Pattern for bill due-date advancement.
// Each frequency has its own advancer, looked up through a registry.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DueDateAdvancer moves a bill's next due date one period forward.
type DueDateAdvancer interface {
	Next(current time.Time, loc *time.Location) time.Time
}

// OnceAdvancer leaves the date unchanged; one-off bills never repeat.
type OnceAdvancer struct{}

func (OnceAdvancer) Next(current time.Time, _ *time.Location) time.Time { return current }

// WeeklyAdvancer adds seven calendar days in the bill's zone.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(current time.Time, loc *time.Location) time.Time {
	return current.In(loc).AddDate(0, 0, 7)
}

// MonthlyAdvancer adds whole months, clamping to the last day of shorter
// months so Jan 31 becomes Feb 28 (or 29).
type MonthlyAdvancer struct{ Months int }

func (a MonthlyAdvancer) Next(current time.Time, loc *time.Location) time.Time {
	return core.AddMonths(current.In(loc), a.Months)
}

var dueDateStrategies = map[core.Frequency]DueDateAdvancer{
	core.Once:      OnceAdvancer{},
	core.Weekly:    WeeklyAdvancer{},
	core.Monthly:   MonthlyAdvancer{Months: 1},
	core.Quarterly: MonthlyAdvancer{Months: 3},
	core.Yearly:    MonthlyAdvancer{Months: 12},
}

// GetDueDateAdvancer returns the advancer for a frequency.
func GetDueDateAdvancer(frequency core.Frequency) (DueDateAdvancer, error) {
	a, ok := dueDateStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return a, nil
}

// RegisterDueDateAdvancer installs or replaces the advancer for a frequency.
func RegisterDueDateAdvancer(frequency core.Frequency, a DueDateAdvancer) {
	dueDateStrategies[frequency] = a
}

// NextDueDate advances current by one period of frequency.
func NextDueDate(current time.Time, frequency core.Frequency, loc *time.Location) (time.Time, error) {
	a, err := GetDueDateAdvancer(frequency)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return a.Next(current, loc), nil
}

package services

import (
	"fmt"
	"time"

	"saldo/internal/core"
)

// DuenessChecker decides whether a fixed expense must be materialized on
// today given the day it last ran. A zero lastExecution means never.
type DuenessChecker interface {
	IsDue(lastExecution, today, startDate core.Date) bool
}

type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, today, _ core.Date) bool {
	return lastExecution.IsZero() || lastExecution.Before(today)
}

type WeeklyChecker struct{}

// IsDue returns true once 7 or more days have passed since last execution.
func (WeeklyChecker) IsDue(lastExecution, today, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return !today.Before(lastExecution.AddDays(7))
}

type MonthlyChecker struct{}

// IsDue returns true in a new month once the start day is reached. Start
// days past the end of a short month fall on its last day.
func (MonthlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == today.Year() && lastExecution.Month() == today.Month() {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
}

type YearlyChecker struct{}

// IsDue returns true in a new year once the start month and day are reached.
func (YearlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == today.Year() {
		return false
	}
	switch {
	case today.Month() < startDate.Month():
		return false
	case today.Month() == startDate.Month():
		return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
	}
	return true
}

func clampDay(year, month, day int) int {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return min(day, last)
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker registered for frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}

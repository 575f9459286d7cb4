// Package engine derives everything computed from stored birthdays: annual
// recurrence, reminder matches, milestones, dashboard views and the
// iCalendar/vCard interchange formats.
package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// Occurrence bundles the derived recurrence facts of one birthday relative to
// a reference date.
type Occurrence struct {
	Birthday   model.Birthday `json:"birthday"`
	Next       model.Date     `json:"nextOccurrence"`
	Previous   model.Date     `json:"previousOccurrence"`
	DaysUntil  int            `json:"daysUntil"`
	DaysSince  int            `json:"daysSince"`
	TurningAge int            `json:"turningAge"`
	Label      string         `json:"label"`
	Milestone  bool           `json:"milestone"`
}

// Occur computes the Occurrence of b relative to today.
func Occur(b model.Birthday, today model.Date) Occurrence {
	next := NextOccurrence(b.Date, today)
	prev := PreviousOccurrence(b.Date, today)
	days := daysBetween(today, next)
	age := next.Year() - b.Date.Year()

	return Occurrence{
		Birthday:   b,
		Next:       next,
		Previous:   prev,
		DaysUntil:  days,
		DaysSince:  daysBetween(prev, today),
		TurningAge: age,
		Label:      CountdownLabel(days),
		Milestone:  IsMilestone(age),
	}
}

// OccurrenceIn places the month and day of origin in the given year.
// A Feb 29 origin resolves to Feb 28 when year is not a leap year.
func OccurrenceIn(origin model.Date, year int) model.Date {
	month, day := origin.Month(), origin.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = config.LeapFallbackDay
	}
	return model.NewDate(year, month, day)
}

// NextOccurrence returns the first anniversary of origin on or after today.
func NextOccurrence(origin, today model.Date) model.Date {
	candidate := OccurrenceIn(origin, today.Year())
	if candidate.Before(today.Time) {
		candidate = OccurrenceIn(origin, today.Year()+1)
	}
	return candidate
}

// PreviousOccurrence returns the latest anniversary of origin on or before
// today. On the birthday itself it equals today.
func PreviousOccurrence(origin, today model.Date) model.Date {
	candidate := OccurrenceIn(origin, today.Year())
	if candidate.After(today.Time) {
		candidate = OccurrenceIn(origin, today.Year()-1)
	}
	return candidate
}

// DaysUntil is the number of calendar days from today to the next occurrence.
func DaysUntil(origin, today model.Date) int {
	return daysBetween(today, NextOccurrence(origin, today))
}

// DaysSince is the number of calendar days from the previous occurrence to today.
func DaysSince(origin, today model.Date) int {
	return daysBetween(PreviousOccurrence(origin, today), today)
}

// TurningAge is the age reached at the next occurrence.
func TurningAge(origin, today model.Date) int {
	return NextOccurrence(origin, today).Year() - origin.Year()
}

// AgeOn returns the completed years between origin and today, or zero when
// origin lies in the future.
func AgeOn(origin, today model.Date) int {
	age := PreviousOccurrence(origin, today).Year() - origin.Year()
	if age < 0 {
		return 0
	}
	return age
}

// IsAnniversary reports whether origin recurs on today.
func IsAnniversary(origin, today model.Date) bool {
	return OccurrenceIn(origin, today.Year()).Equal(today.Time)
}

// CountdownLabel renders a day count the way the birthday cards show it.
func CountdownLabel(days int) string {
	switch days {
	case config.DaysToday:
		return config.LabelToday
	case config.DaysTomorrow:
		return config.LabelTomorrow
	default:
		return fmt.Sprintf(config.FormatInDays, days)
	}
}

// daysBetween counts whole days between two dates. Both are UTC midnights so
// the division is exact.
func daysBetween(from, to model.Date) int {
	return int(to.Sub(from.Time) / (config.SecondsPerDay * time.Second))
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

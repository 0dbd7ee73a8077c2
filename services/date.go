package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	isoDateLayout    = "2006-01-02"
	importDateLayout = "2/1/2006"
)

// ErrInvalidDateRange is returned when from is after until
var ErrInvalidDateRange = errors.New("invalid date range: from must not be after until")

// ParseDate parses a date string in ISO format (YYYY-MM-DD) as midnight UTC
func ParseDate(dateStr string) (time.Time, error) {
	parsedTime, err := time.Parse(isoDateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return parsedTime, nil
}

// ParseImportDate accepts dd/mm/yyyy or an ISO-like date (YYYY-MM-DD, optionally
// followed by a time part) and returns the day at midnight UTC.
func ParseImportDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	if strings.Contains(s, "/") {
		t, err := time.Parse(importDateLayout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date format: expected DD/MM/YYYY or YYYY-MM-DD")
		}
		return t, nil
	}

	for _, layout := range []string{isoDateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: expected DD/MM/YYYY or YYYY-MM-DD")
}

// StartOfDay truncates t to midnight UTC of its calendar day
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(isoDateLayout)
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	From  time.Time
	Until time.Time
}

// NewDateRange builds a range from two days, rejecting from > until
func NewDateRange(from, until time.Time) (DateRange, error) {
	from, until = StartOfDay(from), StartOfDay(until)
	if from.After(until) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{From: from, Until: until}, nil
}

// ParseDateRange parses two ISO dates into a DateRange
func ParseDateRange(fromStr, untilStr string) (DateRange, error) {
	from, err := ParseDate(fromStr)
	if err != nil {
		return DateRange{}, fmt.Errorf("from: %w", err)
	}
	until, err := ParseDate(untilStr)
	if err != nil {
		return DateRange{}, fmt.Errorf("until: %w", err)
	}
	return NewDateRange(from, until)
}

// Days enumerates every calendar day in the range, weekends included
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.From; !d.After(r.Until); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the day lies inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := StartOfDay(t)
	return !d.Before(r.From) && !d.After(r.Until)
}

// BusinessDaysBetween counts the weekdays in [a, b). It returns 0 when b is
// not after a.
func BusinessDaysBetween(a, b time.Time) int {
	a, b = StartOfDay(a), StartOfDay(b)
	if !b.After(a) {
		return 0
	}

	days := 0
	for d := a; d.Before(b); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

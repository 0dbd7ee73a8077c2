package services

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationErrors maps a field name to its validation messages
type ValidationErrors map[string][]string

// Add records a message for a field
func (v ValidationErrors) Add(field, format string, args ...interface{}) {
	v[field] = append(v[field], fmt.Sprintf(format, args...))
}

// Has reports whether a field already failed validation
func (v ValidationErrors) Has(field string) bool {
	return len(v[field]) > 0
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when no field failed
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// requireString checks a required, length-bounded text field
func (v ValidationErrors) requireString(field, value string, max int) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "The %s field is required.", field)
		return
	}
	if max > 0 && len([]rune(value)) > max {
		v.Add(field, "The %s field must not be greater than %d characters.", field, max)
	}
}

// percent checks an optional 0-100 value
func (v ValidationErrors) percent(field string, value *float64) {
	if value != nil && (*value < 0 || *value > 100) {
		v.Add(field, "The %s field must be between 0 and 100.", field)
	}
}

// oneOf checks an optional enum value
func (v ValidationErrors) oneOf(field, value string, valid func(string) bool) {
	if value != "" && !valid(value) {
		v.Add(field, "The selected %s is invalid.", field)
	}
}

// optionalDate parses an optional ISO date
func (v ValidationErrors) optionalDate(field, value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := ParseDate(value)
	if err != nil {
		v.Add(field, "The %s field must be a valid date (YYYY-MM-DD).", field)
		return nil
	}
	return &t
}

// requiredDate parses a required ISO date
func (v ValidationErrors) requiredDate(field, value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "The %s field is required.", field)
		return nil
	}
	return v.optionalDate(field, value)
}

// notBefore checks that date is on or after ref when both are set
func (v ValidationErrors) notBefore(field string, date, ref *time.Time, refField string) {
	if date != nil && ref != nil && date.Before(*ref) {
		v.Add(field, "The %s field must be a date after or equal to %s.", field, refField)
	}
}

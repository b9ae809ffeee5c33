// Package datetime turns the date/time strings found in box-office exports
// into UTC instants.  Exports mix day-first spreadsheet formats with ISO
// strings written back by earlier runs, so several layouts are accepted.
// Nothing here depends on the local time zone: the same text always yields
// the same instant and therefore the same grouping date.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseError reports a date/time field that is empty or not understood.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Field '%s' %s", e.Field, e.Reason)
}

// zoned layouts carry their own offset; local layouts are read as UTC.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05Z07",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
	}
	localLayouts = []string{
		// ISO 8601 without a zone.
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		// Day-first exports; single-digit day, month and hour are allowed.
		"2/1/2006 15:04:05",
		"2/1/2006 15:04",
		// Space-delimited ISO-like.
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		// Date only, midnight.
		"2006-01-02",
	}
)

// Parse reads text as a date/time for the named field.  Formats are tried
// in order: ISO 8601 (zone optional, as Z, ±hh:mm, ±hhmm or ±hh),
// DD/MM/YYYY HH:mm[:ss], YYYY-MM-DD HH:mm[:ss], YYYY-MM-DD.  Fractional
// seconds are accepted after the seconds field.  Years before MinYear are
// rejected.  The result is always in UTC.
func Parse(text, field string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, &ParseError{Field: field, Reason: "is empty."}
	}

	outOfRange := false
	try := func(layout string, loc *time.Location) (time.Time, bool) {
		var (
			t   time.Time
			err error
		)
		if loc == nil {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err != nil {
			if isRangeError(err) {
				outOfRange = true
			}
			return time.Time{}, false
		}
		return t.UTC(), true
	}

	if strings.Contains(s, "T") {
		for _, layout := range zonedLayouts {
			if t, ok := try(layout, nil); ok {
				return checkYear(t, s, field)
			}
		}
	}
	for _, layout := range localLayouts {
		if t, ok := try(layout, time.UTC); ok {
			return checkYear(t, s, field)
		}
	}

	if outOfRange {
		return time.Time{}, &ParseError{
			Field:  field,
			Reason: fmt.Sprintf("has '%s', which is not a valid calendar date/time.", s),
		}
	}
	return time.Time{}, &ParseError{
		Field:  field,
		Reason: fmt.Sprintf("has '%s', expected DD/MM/YYYY HH:mm[:ss], YYYY-MM-DD[ HH:mm[:ss]] or ISO 8601.", s),
	}
}

// MinYear is the earliest year Parse accepts.
const MinYear = 1900

func checkYear(t time.Time, s, field string) (time.Time, error) {
	if t.Year() < MinYear {
		return time.Time{}, &ParseError{
			Field:  field,
			Reason: fmt.Sprintf("has '%s', which is before %d.", s, MinYear),
		}
	}
	return t, nil
}

// DateOf formats t as a YYYY-MM-DD grouping key.
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func isRangeError(err error) bool {
	var pe *time.ParseError
	if errors.As(err, &pe) {
		return strings.Contains(pe.Message, "out of range")
	}
	return strings.Contains(err.Error(), "out of range")
}

package comments

import (
	"strings"
	"time"
	"unicode"
)

// ParseDate turns the forum's "DD.MM.YY" and "HH:MM" texts into an instant
// in loc (time.Local when nil). Seconds are always zero.
//
// Each component is read like a leading integer: surrounding spaces and a
// sign are allowed and parsing stops at the first non-digit, so "08" is 8
// and "5x" is 5. Two-digit years below 50 land in 2000+Y, the rest in
// 1900+Y. Out-of-range values are not rejected; time.Date normalizes them
// (month 13 becomes January of the next year, day 32 spills into the next
// month). ok is false only when a component is missing or has no digits.
func ParseDate(dateText, timeText string, loc *time.Location) (t time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}

	dateParts := strings.Split(dateText, ".")
	timeParts := strings.Split(timeText, ":")
	if len(dateParts) < 3 || len(timeParts) < 2 {
		return time.Time{}, false
	}

	var fields [5]int
	for i, s := range []string{dateParts[0], dateParts[1], dateParts[2], timeParts[0], timeParts[1]} {
		n, ok := leadingInt(s)
		if !ok {
			return time.Time{}, false
		}
		fields[i] = n
	}
	day, month, year, hour, minute := fields[0], fields[1], fields[2], fields[3], fields[4]

	return time.Date(ExpandYear(year), time.Month(month), day, hour, minute, 0, 0, loc), true
}

// ExpandYear maps a two-digit year: Y < 50 is 2000+Y, otherwise 1900+Y.
func ExpandYear(y int) int {
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// leadingInt parses an optionally signed run of decimal digits at the start
// of s after skipping whitespace. Trailing garbage is ignored.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		// Clamp instead of overflowing; time.Date copes with large values.
		if n < 1<<30 {
			n = n*10 + int(s[digits]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames maps month names and common abbreviations to month numbers.
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	// "march 14" / "mar 14, 2026" / "14 march"
	datePattern = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?|\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]{3,9})\.?(?:,?\s*(\d{4}))?`)

	// "7:30 pm" / "7 pm" / "19:30"
	timePattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// ParseEventTime resolves a scraped free-text date/time string into an
// absolute timestamp. Month names resolve through a lookup table, 12-hour
// clock times convert to 24-hour, years default to the next occurrence of
// the date, and unparseable input falls back to now.
func ParseEventTime(text string, now time.Time) time.Time {
	month, day, year, haveDate := parseDatePart(text)
	if !haveDate {
		return now
	}

	hour, minute := parseTimePart(text)

	if year == 0 {
		year = now.Year()
		candidate := time.Date(year, month, day, hour, minute, 0, 0, now.Location())
		// No year in the text means the next occurrence of that date.
		if candidate.Before(now.AddDate(0, 0, -1)) {
			year++
		}
	}

	return time.Date(year, month, day, hour, minute, 0, 0, now.Location())
}

// parseDatePart extracts month, day and optional year from text.
func parseDatePart(text string) (month time.Month, day, year int, ok bool) {
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		var monthWord, dayStr, yearStr string
		if m[1] != "" {
			monthWord, dayStr, yearStr = m[1], m[2], m[3]
		} else {
			dayStr, monthWord, yearStr = m[4], m[5], m[6]
		}

		mon, known := monthNames[strings.ToLower(monthWord)]
		if !known {
			continue
		}

		d, err := strconv.Atoi(dayStr)
		if err != nil || d < 1 || d > 31 {
			continue
		}

		y := 0
		if yearStr != "" {
			y, _ = strconv.Atoi(yearStr)
		}

		return mon, d, y, true
	}
	return 0, 0, 0, false
}

// parseTimePart extracts an hour and minute from text, converting 12-hour
// clock markers. Defaults to 00:00 when no plausible time is present.
func parseTimePart(text string) (hour, minute int) {
	for _, m := range timePattern.FindAllStringSubmatch(text, -1) {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])

		// A bare number with no minutes and no am/pm marker is more
		// likely a day-of-month than a time.
		if m[2] == "" && meridiem == "" {
			continue
		}

		switch meridiem {
		case "pm":
			if h < 12 {
				h += 12
			}
		case "am":
			if h == 12 {
				h = 0
			}
		}

		if h > 23 || min > 59 {
			continue
		}
		return h, min
	}
	return 0, 0
}

package datapack

import (
	"strconv"
	"strings"
	"time"
)

// lenientLayouts are tried, in order, after strict ISO parsing fails.
// Month names match case-insensitively, which covers ONS labels like
// "2024 JAN" as well as "March 2024".
var lenientLayouts = []string{
	"2006-01",
	"January 2006",
	"Jan 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006 January",
	"2006 Jan",
	"2006-January",
	"2006-Jan",
}

// ParsePeriod normalizes a period label into a UTC calendar date.
// Strict ISO-8601 is attempted first, then quarter labels, then the
// lenient layouts, then a bare year (mapped to January 1). Returns nil
// on anything unparseable; never an error.
func ParsePeriod(label string) *time.Time {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}

	if t, err := time.Parse("2006-01-02", label); err == nil {
		t = t.UTC()
		return &t
	}

	if t, ok := parseQuarter(label); ok {
		return &t
	}

	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	if year, err := strconv.Atoi(label); err == nil && year >= 1000 && year <= 9999 {
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	return nil
}

// parseQuarter handles "2024 Q1", "2024-Q1" and "Q1 2024" shapes,
// mapping a quarter to its first month.
func parseQuarter(label string) (time.Time, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(label, "-", " "))
	fields := strings.Fields(normalized)
	if len(fields) != 2 {
		return time.Time{}, false
	}

	yearPart, quarterPart := fields[0], fields[1]
	if strings.HasPrefix(yearPart, "Q") {
		yearPart, quarterPart = quarterPart, yearPart
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1000 || year > 9999 {
		return time.Time{}, false
	}

	if len(quarterPart) != 2 || quarterPart[0] != 'Q' {
		return time.Time{}, false
	}
	quarter := int(quarterPart[1] - '0')
	if quarter < 1 || quarter > 4 {
		return time.Time{}, false
	}

	month := time.Month((quarter-1)*3 + 1)
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}

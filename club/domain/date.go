package domain

import (
	"fmt"
	"strings"
	"time"
)

// Event dates are announced as "DD.MM в HH:MM"; the year is implied to
// be the current one.
var eventDateLayouts = []string{
	"02.01 в 15:04",
	"2.1 в 15:04",
}

// ParseEventDate parses the announcement date format relative to now.
// Anything outside the two dotted layouts is rejected.
func ParseEventDate(input string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	for _, layout := range eventDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("domain: unrecognized event date %q", input)
}

// FormatEventDate renders a date back into the announcement format.
func FormatEventDate(t time.Time) string {
	return t.Format("02.01 в 15:04")
}

package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Layouts carrying an explicit offset. The result is converted to UTC.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999-0700",
}

// abbrevLayout accepts a trailing zone abbreviation. Only UTC and GMT are
// honoured: time.Parse gives any other unknown abbreviation a zero offset.
const abbrevLayout = "2006-01-02 15:04:05.999999999 MST"

// Layouts without an offset. These are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a benchmark timestamp into a UTC instant. Inputs
// that differ only in their source time zone yield equal instants.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(abbrevLayout, s); err == nil {
		switch name, _ := t.Zone(); name {
		case "UTC", "GMT":
			return t.UTC(), nil
		default:
			return time.Time{}, fmt.Errorf("ambiguous zone abbreviation %q: use a numeric offset", name)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp format")
}

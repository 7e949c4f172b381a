package compute

import (
	"fmt"
	"time"
)

// Day is the length of the evaluated period.
const Day = 24 * time.Hour

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowBefore returns the window of days whole days ending at end.
func WindowBefore(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

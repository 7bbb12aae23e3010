package timezone

import (
	"fmt"
	"time"

	"github.com/attendancetracker/internal/attendance"
)

// Load returns the named location. An empty name is UTC.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return location, nil
}

// Clock returns a function reporting the current time in location.
func Clock(location *time.Location) func() time.Time {
	return func() time.Time {
		return time.Now().In(location)
	}
}

// Today is the calendar date of now() in its own location.
func Today(now func() time.Time) attendance.Date {
	return attendance.DateOf(now())
}

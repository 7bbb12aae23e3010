package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Span parses Time into offsets from midnight. The trailing AM/PM applies to
// both ends unless that would put the start after the end.
func (s Subject) Span() (start time.Duration, end time.Duration, err error) {
	from, to, ok := strings.Cut(s.Time, "–")
	if !ok {
		from, to, ok = strings.Cut(s.Time, "-")
	}
	if !ok {
		return 0, 0, fmt.Errorf("%q: missing range separator", s.Time)
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(to, suffix) {
			meridiem = suffix
			to = strings.TrimSpace(strings.TrimSuffix(to, suffix))
		}
	}

	start, err = clock(from, meridiem)
	if err != nil {
		return 0, 0, err
	}
	end, err = clock(to, meridiem)
	if err != nil {
		return 0, 0, err
	}
	if meridiem == "PM" && start > end {
		start -= 12 * time.Hour
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%q: start is not before end", s.Time)
	}
	return start, end, nil
}

func clock(value string, meridiem string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, err)
	}
	hour := t.Hour()
	switch meridiem {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return time.Duration(hour)*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

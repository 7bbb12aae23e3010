package statistics

import "fmt"

// Threshold is the minimum attendance percentage.
const Threshold = 75

type Period string

const (
	PeriodAll   Period = "all"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var Periods = []Period{PeriodAll, PeriodWeek, PeriodMonth}

func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodAll, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%q: unknown period", s)
}

func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "This Week"
	case PeriodMonth:
		return "This Month"
	default:
		return "Till-Date"
	}
}

type Stats struct {
	Present   int `json:"present"`
	Absent    int `json:"absent"`
	Cancelled int `json:"cancelled"`
	// Total is Present + Absent, cancelled classes are not counted
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Low reports whether there is data and the percentage is under Threshold.
func (s Stats) Low() bool {
	return s.Total > 0 && s.Percentage < Threshold
}

type Summary struct {
	Stats
	NeedToAttend int `json:"need_to_attend"`
}

type SubjectStats struct {
	Stats
	Subject      string `json:"subject"`
	NeedToAttend int    `json:"need_to_attend"`
}

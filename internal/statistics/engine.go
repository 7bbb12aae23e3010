package statistics

import (
	"time"

	"github.com/attendancetracker/internal/attendance"
)

// Interval returns inclusive bounds of the period containing reference.
// Weeks start on Monday. ok is false for PeriodAll.
func Interval(period Period, reference time.Time) (from, to attendance.Date, ok bool) {
	today := attendance.DateOf(reference)
	switch period {
	case PeriodWeek:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		from = today.AddDays(-sinceMonday)
		return from, from.AddDays(6), true
	case PeriodMonth:
		from = attendance.Date{Year: today.Year, Month: today.Month, Day: 1}
		return from, attendance.DateOf(from.Time().AddDate(0, 1, -1)), true
	default:
		return attendance.Date{}, attendance.Date{}, false
	}
}

func FilterByPeriod(records []attendance.Record, period Period, reference time.Time) []attendance.Record {
	from, to, ok := Interval(period, reference)
	if !ok {
		return records
	}
	out := make([]attendance.Record, 0, len(records))
	for _, record := range records {
		if record.Date.Before(from) || record.Date.After(to) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func Aggregate(records []attendance.Record) Stats {
	var stats Stats
	for _, record := range records {
		switch record.Status {
		case attendance.StatusPresent:
			stats.Present++
		case attendance.StatusAbsent:
			stats.Absent++
		case attendance.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.Total = stats.Present + stats.Absent
	if stats.Total > 0 {
		stats.Percentage = float64(stats.Present) / float64(stats.Total) * 100
	}
	return stats
}

// NeedToAttend returns the smallest number of consecutive attended classes
// after which the percentage reaches Threshold.
//
// It is a best case projection: every future class is assumed to be attended.
// Solving (present + x) / (total + x) >= 0.75 for x gives x >= 3*total - 4*present.
func NeedToAttend(stats Stats) int {
	if stats.Total == 0 || 4*stats.Present >= 3*stats.Total {
		return 0
	}
	return max(3*stats.Total-4*stats.Present, 0)
}

// Compute filters records by keep and period, aggregates them and attaches
// the projection.
func Compute(records []attendance.Record, keep func(attendance.Record) bool, period Period, reference time.Time) Summary {
	if keep != nil {
		kept := make([]attendance.Record, 0, len(records))
		for _, record := range records {
			if keep(record) {
				kept = append(kept, record)
			}
		}
		records = kept
	}
	stats := Aggregate(FilterByPeriod(records, period, reference))
	return Summary{
		Stats:        stats,
		NeedToAttend: NeedToAttend(stats),
	}
}

func Global(records []attendance.Record, period Period, reference time.Time) Summary {
	return Compute(records, nil, period, reference)
}

func ForSubject(records []attendance.Record, subject string, period Period, reference time.Time) SubjectStats {
	summary := Compute(records, func(r attendance.Record) bool {
		return r.Subject == subject
	}, period, reference)
	return SubjectStats{
		Stats:        summary.Stats,
		Subject:      subject,
		NeedToAttend: summary.NeedToAttend,
	}
}

func ForSubjects(records []attendance.Record, subjects []string, period Period, reference time.Time) []SubjectStats {
	out := make([]SubjectStats, len(subjects))
	for i, subject := range subjects {
		out[i] = ForSubject(records, subject, period, reference)
	}
	return out
}

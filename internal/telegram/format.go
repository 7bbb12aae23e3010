package telegram

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/attendancetracker/internal/statistics"
)

func formatStats(period statistics.Period, global statistics.Summary, low []statistics.SubjectStats) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s attendance: %.1f%%\n", period.Label(), global.Percentage)
	fmt.Fprintf(b, "Present %d, absent %d, cancelled %d\n", global.Present, global.Absent, global.Cancelled)
	if global.NeedToAttend > 0 {
		fmt.Fprintf(b, "Attend %d more classes to reach %d%%\n", global.NeedToAttend, statistics.Threshold)
	}
	if len(low) == 0 {
		b.WriteString("All subjects are above the threshold")
		return b.String()
	}
	b.WriteString("\nBelow threshold:")
	for _, subject := range low {
		fmt.Fprintf(b, "\n- %s: %.1f%%, attend %d more", subject.Subject, subject.Percentage, subject.NeedToAttend)
	}
	return b.String()
}

func formatLowAttendance(stats statistics.SubjectStats) string {
	return fmt.Sprintf(
		"⚠️ %s attendance dropped to %.1f%% (%d/%d). Attend the next %d classes to get back to %d%%.",
		stats.Subject, stats.Percentage, stats.Present, stats.Total, stats.NeedToAttend, statistics.Threshold,
	)
}

func formatSlogRecord(r slog.Record) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "[%s] %s", r.Level, r.Message)
	r.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(b, "\n%s: %s", attr.Key, attr.Value)
		return true
	})
	return b.String()
}

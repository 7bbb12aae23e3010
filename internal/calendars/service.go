package calendars

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/schedule"
	"github.com/attendancetracker/internal/statistics"
)

type Service struct {
	store    *Store
	cache    *attendance.Cache
	catalog  *schedule.Catalog
	location *time.Location
	now      func() time.Time
}

func NewService(
	store *Store,
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	location *time.Location,
	now func() time.Time,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		catalog:  catalog,
		location: location,
		now:      now,
	}
}

func (s *Service) CreateCalendar(ctx context.Context, weeks int) (*Calendar, error) {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	cal := &Calendar{
		ID:        gonanoid.Must(),
		Weeks:     weeks,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertCalendar(ctx, cal); err != nil {
		return nil, fmt.Errorf("insert calendar: %w", err)
	}
	return cal, nil
}

func (s *Service) DeleteCalendar(ctx context.Context, id string) error {
	return s.store.DeleteCalendar(ctx, id)
}

// WriteICal writes the classes of the past cal.Weeks weeks and the next week.
// Marked classes are prefixed with their status.
func (s *Service) WriteICal(ctx context.Context, w io.Writer, id string) error {
	cal, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find by id %q: %w", id, err)
	}

	monday, _, _ := statistics.Interval(statistics.PeriodWeek, s.now())
	from := monday.AddDays(-7 * (cal.Weeks - 1))
	to := monday.AddDays(13)

	icalendar := ics.NewCalendar()
	icalendar.SetName("Attendance")
	icalendar.SetTimezoneId(s.location.String())
	for date := from; !date.After(to); date = date.AddDays(1) {
		for _, subject := range s.catalog.ScheduleFor(date.Weekday()) {
			start, end, err := subject.Span()
			if err != nil {
				continue
			}
			summary := subject.Name
			if status, ok := s.cache.StatusFor(date, subject.Name); ok {
				summary = fmt.Sprintf("[%s] %s", strings.ToUpper(string(status)), subject.Name)
			}

			ievent := icalendar.AddEvent(eventID(date, subject.Name))
			ievent.SetSummary(summary)
			if subject.Sessions > 1 {
				ievent.SetDescription(fmt.Sprintf("%d sessions", subject.Sessions))
			}
			ievent.SetColor(s.catalog.ColorFor(subject.Name))
			ievent.SetStartAt(clockOn(date, start, s.location))
			ievent.SetEndAt(clockOn(date, end, s.location))
		}
	}
	return icalendar.SerializeTo(w)
}

// clockOn returns the wall clock time offset from midnight on date, so that
// daylight saving changes on that day do not shift it.
func clockOn(date attendance.Date, offset time.Duration, location *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, location)
}

func eventID(date attendance.Date, subject string) string {
	return fmt.Sprintf("%s-%s@attendance", date, strings.ReplaceAll(strings.ToLower(subject), " ", "-"))
}

package statistics

import (
	"time"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/schedule"
)

type Service struct {
	cache   *attendance.Cache
	catalog *schedule.Catalog
	now     func() time.Time
}

func NewService(
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	now func() time.Time,
) *Service {
	return &Service{
		cache:   cache,
		catalog: catalog,
		now:     now,
	}
}

func (s *Service) Global(period Period) Summary {
	return Global(s.cache.Records(), period, s.now())
}

func (s *Service) Subject(subject string, period Period) SubjectStats {
	return ForSubject(s.cache.Records(), subject, period, s.now())
}

// Subjects returns stats for every subject of the catalog, in catalog order.
func (s *Service) Subjects(period Period) []SubjectStats {
	return ForSubjects(s.cache.Records(), s.catalog.AllSubjects(), period, s.now())
}

// LowSubjects returns subjects under Threshold.
func (s *Service) LowSubjects(period Period) []SubjectStats {
	out := []SubjectStats{}
	for _, stats := range s.Subjects(period) {
		if stats.Low() {
			out = append(out, stats)
		}
	}
	return out
}

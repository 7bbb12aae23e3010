package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/schedule"
	"github.com/attendancetracker/internal/statistics"
)

type Renderer interface {
	RenderDashboardPage(io.Writer, DashboardData) error
	RenderDayPage(io.Writer, DayData) error
	RenderSubjectsPage(io.Writer, SubjectsData) error
	RenderSubjectPage(io.Writer, SubjectData) error
}

type PeriodLink struct {
	Period statistics.Period
	Label  string
	Active bool
}

func PeriodLinks(active statistics.Period) []PeriodLink {
	links := make([]PeriodLink, 0, len(statistics.Periods))
	for _, period := range statistics.Periods {
		links = append(links, PeriodLink{
			Period: period,
			Label:  period.Label(),
			Active: period == active,
		})
	}
	return links
}

type SubjectCard struct {
	statistics.SubjectStats
	Color string
}

type DashboardData struct {
	Period    statistics.Period
	Periods   []PeriodLink
	Global    statistics.Summary
	Subjects  []SubjectCard
	Today     attendance.Date
	Loading   bool
	Threshold int
}

type DayClass struct {
	schedule.Subject
	Color  string
	Status attendance.Status
	Marked bool
}

type DayData struct {
	Date     attendance.Date
	IsToday  bool
	Previous attendance.Date
	Next     attendance.Date
	Classes  []DayClass
	Statuses []attendance.Status
}

type SubjectsData struct {
	Subjects []SubjectCard
}

type SubjectData struct {
	Subject   SubjectCard
	Week      statistics.SubjectStats
	Month     statistics.SubjectStats
	Records   []attendance.Record
	Threshold int
}

var funcs = template.FuncMap{
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"longDate": func(d attendance.Date) string {
		return d.Time().Format("Monday, January 2, 2006")
	},
	"shortDate": func(d attendance.Date) string {
		return d.Time().Format("Jan 2")
	},
	"statusClass": func(s attendance.Status) string {
		switch s {
		case attendance.StatusPresent:
			return "present"
		case attendance.StatusAbsent:
			return "absent"
		case attendance.StatusCancelled:
			return "cancelled"
		default:
			return ""
		}
	},
	"sessions": func(n int) string {
		if n == 1 {
			return "1 session"
		}
		return fmt.Sprintf("%d sessions", n)
	},
}

var pages = []string{
	"dashboard.html.template",
	"day.html.template",
	"subjects.html.template",
	"subject.html.template",
}

func parsePage(fsys fs.FS, page string) (*template.Template, error) {
	return template.New(page).Funcs(funcs).ParseFS(fsys, "_layout.html.template", page)
}

//go:embed *.template
var embedFS embed.FS

var _ Renderer = &renderer{}

// renderer parses pages once when cache is set, on every render otherwise.
type renderer struct {
	fsys  fs.FS
	cache map[string]*template.Template
}

func NewEmbedTemplates() Renderer {
	r := &renderer{
		fsys:  embedFS,
		cache: make(map[string]*template.Template, len(pages)),
	}
	for _, page := range pages {
		r.cache[page] = template.Must(parsePage(embedFS, page))
	}
	return r
}

func NewFilesystemTemplates(dir string) Renderer {
	return &renderer{
		fsys: os.DirFS(dir),
	}
}

func (r *renderer) render(w io.Writer, page string, data any) error {
	t, ok := r.cache[page]
	if !ok {
		var err error
		if t, err = parsePage(r.fsys, page); err != nil {
			return fmt.Errorf("parse %s: %w", page, err)
		}
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (r *renderer) RenderDashboardPage(w io.Writer, data DashboardData) error {
	return r.render(w, "dashboard.html.template", data)
}

func (r *renderer) RenderDayPage(w io.Writer, data DayData) error {
	return r.render(w, "day.html.template", data)
}

func (r *renderer) RenderSubjectsPage(w io.Writer, data SubjectsData) error {
	return r.render(w, "subjects.html.template", data)
}

func (r *renderer) RenderSubjectPage(w io.Writer, data SubjectData) error {
	return r.render(w, "subject.html.template", data)
}

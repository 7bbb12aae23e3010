package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/calendars"
	"github.com/attendancetracker/internal/export"
	"github.com/attendancetracker/internal/http/templates"
	"github.com/attendancetracker/internal/schedule"
	"github.com/attendancetracker/internal/statistics"
	"github.com/attendancetracker/internal/timezone"
)

// RequestTimeout bounds every request, including the store calls it makes.
const RequestTimeout = 15 * time.Second

func Handler(
	logger *slog.Logger,
	renderer templates.Renderer,
	staticHandler http.Handler,
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	statisticsService *statistics.Service,
	calendarsService *calendars.Service,
	location *time.Location,
	now func() time.Time,
) http.HandlerFunc {
	validate := newValidator(catalog)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleDashboard(logger, renderer, cache, catalog, statisticsService, now))

	mux.HandleFunc("GET /days/{$}", handleToday(now))
	mux.HandleFunc("GET /days/{date}", handleDay(logger, renderer, cache, catalog, now))
	mux.HandleFunc("DELETE /days/{date}", handleDeleteDay(logger, cache))
	mux.HandleFunc("POST /days/{date}/subjects/{subject}", handleMark(logger, cache, validate))
	mux.HandleFunc("DELETE /days/{date}/subjects/{subject}", handleDeleteMark(logger, cache))

	mux.HandleFunc("GET /subjects/{$}", handleSubjects(logger, renderer, catalog, statisticsService))
	mux.HandleFunc("GET /subjects/{subject}", handleSubject(logger, renderer, cache, catalog, statisticsService))

	mux.HandleFunc("GET /api/stats", handleAPIStats(logger, statisticsService))
	mux.HandleFunc("GET /api/records", handleAPIRecords(logger, cache))
	mux.HandleFunc("POST /api/refresh", handleRefresh(logger, cache))

	mux.HandleFunc("GET /export/attendance.csv", handleExport(logger, cache, location, now, export.FormatCSV, export.WriteCSV))
	mux.HandleFunc("GET /export/attendance.xlsx", handleExport(logger, cache, location, now, export.FormatXLSX, export.WriteXLSX))

	mux.HandleFunc("POST /calendars", handleCreateCalendar(logger, calendarsService))
	mux.HandleFunc("GET /calendars/{calendar_id}/attendance.ics", handleGetCalendar(logger, calendarsService))
	mux.HandleFunc("DELETE /calendars/{calendar_id}", handleDeleteCalendar(logger, calendarsService))

	mux.Handle("GET /", staticHandler)

	return WithMiddlewares(
		WithRequestID(),
		WithAccessLogs(logger),
		WithTimeout(RequestTimeout),
	)(mux.ServeHTTP)
}

func newValidator(catalog *schedule.Catalog) *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("scheduled", func(fl validator.FieldLevel) bool {
		return catalog.HasSubject(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type markRequest struct {
	Date    string `json:"-" validate:"required,datetime=2006-01-02"`
	Subject string `json:"-" validate:"required,scheduled"`
	Status  string `json:"status" validate:"required,oneof=Present Absent Cancelled"`
}

func parsePeriod(w http.ResponseWriter, r *http.Request) (statistics.Period, bool) {
	period, err := statistics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return period, true
}

func parseDate(w http.ResponseWriter, r *http.Request) (attendance.Date, bool) {
	date, err := attendance.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid date %q", r.PathValue("date")))
		return attendance.Date{}, false
	}
	return date, true
}

func subjectCards(catalog *schedule.Catalog, stats []statistics.SubjectStats) []templates.SubjectCard {
	cards := make([]templates.SubjectCard, 0, len(stats))
	for _, s := range stats {
		cards = append(cards, templates.SubjectCard{
			SubjectStats: s,
			Color:        catalog.ColorFor(s.Subject),
		})
	}
	return cards
}

func handleDashboard(
	logger *slog.Logger,
	renderer templates.Renderer,
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	statisticsService *statistics.Service,
	now func() time.Time,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, ok := parsePeriod(w, r)
		if !ok {
			return
		}
		if err := renderer.RenderDashboardPage(w, templates.DashboardData{
			Period:    period,
			Periods:   templates.PeriodLinks(period),
			Global:    statisticsService.Global(period),
			Subjects:  subjectCards(catalog, statisticsService.Subjects(period)),
			Today:     timezone.Today(now),
			Loading:   cache.Loading(),
			Threshold: statistics.Threshold,
		}); err != nil {
			logger.Error("render dashboard page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleToday(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, fmt.Sprintf("/days/%s", timezone.Today(now)), http.StatusTemporaryRedirect)
	}
}

func handleDay(
	logger *slog.Logger,
	renderer templates.Renderer,
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	now func() time.Time,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDate(w, r)
		if !ok {
			return
		}
		subjects := catalog.ScheduleFor(date.Weekday())
		classes := make([]templates.DayClass, 0, len(subjects))
		for _, subject := range subjects {
			status, marked := cache.StatusFor(date, subject.Name)
			classes = append(classes, templates.DayClass{
				Subject: subject,
				Color:   catalog.ColorFor(subject.Name),
				Status:  status,
				Marked:  marked,
			})
		}
		if err := renderer.RenderDayPage(w, templates.DayData{
			Date:     date,
			IsToday:  date == timezone.Today(now),
			Previous: date.AddDays(-1),
			Next:     date.AddDays(1),
			Classes:  classes,
			Statuses: attendance.Statuses,
		}); err != nil {
			logger.Error("render day page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleMark(
	logger *slog.Logger,
	cache *attendance.Cache,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := markRequest{
			Date:    r.PathValue("date"),
			Subject: r.PathValue("subject"),
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid request body")
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid form")
				return
			}
			req.Status = r.PostForm.Get("status")
		}

		if err := validate.Struct(req); err != nil {
			var validationErrors validator.ValidationErrors
			if errors.As(err, &validationErrors) {
				writeError(w, r, http.StatusBadRequest, validationMessage(validationErrors))
				return
			}
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		date, _ := attendance.ParseDate(req.Date)
		status, _ := attendance.ParseStatus(req.Status)
		record, err := cache.Mark(r.Context(), date, req.Subject, status)
		if err != nil {
			writeStoreError(logger, w, r, "marking attendance", err)
			return
		}

		if wantsJSON(r) {
			if err := writeJSON(w, http.StatusOK, record); err != nil {
				logger.Error("write record", "error", err)
			}
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/days/%s", date), http.StatusSeeOther)
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", strings.ToLower(e.Field())))
		case "scheduled":
			messages = append(messages, fmt.Sprintf("%q is not a scheduled subject", e.Value()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of %s", strings.ToLower(e.Field()), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", strings.ToLower(e.Field())))
		}
	}
	return strings.Join(messages, ", ")
}

func respondDeleted(w http.ResponseWriter, r *http.Request, date attendance.Date) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", fmt.Sprintf("/days/%s", date))
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleDeleteMark(logger *slog.Logger, cache *attendance.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDate(w, r)
		if !ok {
			return
		}
		if err := cache.Delete(r.Context(), date, r.PathValue("subject")); err != nil {
			writeStoreError(logger, w, r, "deleting attendance", err)
			return
		}
		respondDeleted(w, r, date)
	}
}

func handleDeleteDay(logger *slog.Logger, cache *attendance.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDate(w, r)
		if !ok {
			return
		}
		if err := cache.DeleteDate(r.Context(), date); err != nil {
			writeStoreError(logger, w, r, "deleting attendance", err)
			return
		}
		respondDeleted(w, r, date)
	}
}

func handleSubjects(
	logger *slog.Logger,
	renderer templates.Renderer,
	catalog *schedule.Catalog,
	statisticsService *statistics.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := renderer.RenderSubjectsPage(w, templates.SubjectsData{
			Subjects: subjectCards(catalog, statisticsService.Subjects(statistics.PeriodAll)),
		}); err != nil {
			logger.Error("render subjects page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleSubject(
	logger *slog.Logger,
	renderer templates.Renderer,
	cache *attendance.Cache,
	catalog *schedule.Catalog,
	statisticsService *statistics.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := r.PathValue("subject")
		if !catalog.HasSubject(subject) {
			writeError(w, r, http.StatusNotFound, fmt.Sprintf("%q is not a scheduled subject", subject))
			return
		}
		if err := renderer.RenderSubjectPage(w, templates.SubjectData{
			Subject: templates.SubjectCard{
				SubjectStats: statisticsService.Subject(subject, statistics.PeriodAll),
				Color:        catalog.ColorFor(subject),
			},
			Week:      statisticsService.Subject(subject, statistics.PeriodWeek),
			Month:     statisticsService.Subject(subject, statistics.PeriodMonth),
			Records:   cache.SubjectRecords(subject),
			Threshold: statistics.Threshold,
		}); err != nil {
			logger.Error("render subject page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

type statsResponse struct {
	Period   statistics.Period         `json:"period"`
	Global   statistics.Summary        `json:"global"`
	Subjects []statistics.SubjectStats `json:"subjects"`
}

func handleAPIStats(logger *slog.Logger, statisticsService *statistics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, ok := parsePeriod(w, r)
		if !ok {
			return
		}
		if err := writeJSON(w, http.StatusOK, statsResponse{
			Period:   period,
			Global:   statisticsService.Global(period),
			Subjects: statisticsService.Subjects(period),
		}); err != nil {
			logger.Error("write stats", "error", err)
		}
	}
}

func handleAPIRecords(logger *slog.Logger, cache *attendance.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var records []attendance.Record
		if subject := r.URL.Query().Get("subject"); subject != "" {
			records = cache.SubjectRecords(subject)
		} else {
			records = cache.Records()
		}
		if err := writeJSON(w, http.StatusOK, records); err != nil {
			logger.Error("write records", "error", err)
		}
	}
}

func handleRefresh(logger *slog.Logger, cache *attendance.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cache.Refresh(r.Context()); err != nil {
			writeStoreError(logger, w, r, "fetching attendance", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// exportWriter writes records in one export format.
type exportWriter func(io.Writer, []attendance.Record, *time.Location) error

func handleExport(
	logger *slog.Logger,
	cache *attendance.Cache,
	location *time.Location,
	now func() time.Time,
	format string,
	write exportWriter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf := &bytes.Buffer{}
		if err := write(buf, cache.Records(), location); err != nil {
			logger.Error("export attendance", "format", format, "error", err)
			writeError(w, r, http.StatusInternalServerError, "Error exporting attendance")
			return
		}
		w.Header().Set("Content-Type", export.ContentTypes[format])
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(format, now())))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("write export", "format", format, "error", err)
		}
	}
}

func handleCreateCalendar(logger *slog.Logger, calendarsService *calendars.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid form")
			return
		}
		weeks := 0
		if raw := r.PostForm.Get("weeks"); raw != "" {
			var err error
			if weeks, err = strconv.Atoi(raw); err != nil || weeks < 1 {
				writeError(w, r, http.StatusBadRequest, "weeks must be a positive number")
				return
			}
		}
		cal, err := calendarsService.CreateCalendar(r.Context(), weeks)
		if err != nil {
			logger.Error("create calendar", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		location := fmt.Sprintf("webcal://%s/calendars/%s/attendance.ics", r.Host, cal.ID)
		if wantsJSON(r) {
			if err := writeJSON(w, http.StatusCreated, map[string]string{"id": cal.ID, "url": location}); err != nil {
				logger.Error("write calendar", "error", err)
			}
			return
		}
		http.Redirect(w, r, location, http.StatusFound)
	}
}

func handleGetCalendar(logger *slog.Logger, calendarsService *calendars.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		if err := calendarsService.WriteICal(r.Context(), w, r.PathValue("calendar_id")); errors.Is(err, calendars.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		} else if err != nil {
			logger.Error("write calendar", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleDeleteCalendar(logger *slog.Logger, calendarsService *calendars.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := calendarsService.DeleteCalendar(r.Context(), r.PathValue("calendar_id")); errors.Is(err, calendars.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		} else if err != nil {
			logger.Error("delete calendar", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

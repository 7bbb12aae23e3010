package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/calendars"
	"github.com/attendancetracker/internal/http/static"
	"github.com/attendancetracker/internal/http/templates"
	"github.com/attendancetracker/internal/schedule"
	"github.com/attendancetracker/internal/statistics"
)

// wednesday, 6 march 2024
func now() time.Time {
	return time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC)
}

type testServer struct {
	handler http.HandlerFunc
	cache   *attendance.Cache
}

func newTestServer(t *testing.T, repository func(*badger.DB) attendance.Repository) *testServer {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	var repo attendance.Repository = attendance.NewStore(db)
	if repository != nil {
		repo = repository(db)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := schedule.Default()
	cache := attendance.NewCache(repo)
	statisticsService := statistics.NewService(cache, catalog, now)
	calendarsService := calendars.NewService(calendars.NewStore(db), cache, catalog, time.UTC, now)

	return &testServer{
		handler: Handler(
			logger,
			templates.NewEmbedTemplates(),
			static.NewEmbedHandler(),
			cache,
			catalog,
			statisticsService,
			calendarsService,
			time.UTC,
			now,
		),
		cache: cache,
	}
}

func (s *testServer) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.handler(w, r)
	return w
}

func markJSON(date string, subject string, status string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/days/"+date+"/subjects/"+url.PathEscape(subject), strings.NewReader(`{"status":"`+status+`"}`))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestMarkAndStats(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, markJSON("2024-03-04", "DIVP", "Present"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var record attendance.Record
	if err := json.NewDecoder(w.Body).Decode(&record); err != nil {
		t.Fatal(err)
	}
	if record.ID == "" || record.Subject != "DIVP" || record.Status != attendance.StatusPresent {
		t.Fatalf("unexpected record %+v", record)
	}

	w = s.do(t, markJSON("2024-03-05", "DIVP Lab", "Absent"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/stats?period=week", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats statsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Global.Present != 1 || stats.Global.Absent != 1 || stats.Global.NeedToAttend != 2 {
		t.Fatalf("unexpected global stats %+v", stats.Global)
	}
	if len(stats.Subjects) != len(schedule.Default().AllSubjects()) {
		t.Fatalf("expected every subject, got %d", len(stats.Subjects))
	}

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/records?subject=DIVP+Lab", nil))
	var records []attendance.Record
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Subject != "DIVP Lab" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestMarkForm(t *testing.T) {
	s := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodPost, "/days/2024-03-04/subjects/SOOAD", strings.NewReader("status=Cancelled"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(t, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Location"); got != "/days/2024-03-04" {
		t.Fatalf("unexpected redirect %q", got)
	}
	if status, ok := s.cache.StatusFor(attendance.MustParseDate("2024-03-04"), "SOOAD"); !ok || status != attendance.StatusCancelled {
		t.Fatalf("expected SOOAD to be cancelled, got %q", status)
	}
}

func TestMarkValidation(t *testing.T) {
	s := newTestServer(t, nil)

	for name, r := range map[string]*http.Request{
		"unknown status":  markJSON("2024-03-04", "DIVP", "Late"),
		"missing status":  markJSON("2024-03-04", "DIVP", ""),
		"unknown subject": markJSON("2024-03-04", "Biology", "Present"),
		"invalid date":    markJSON("2024-02-30", "DIVP", "Present"),
	} {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, r)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
	if records := s.cache.Records(); len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestDelete(t *testing.T) {
	s := newTestServer(t, nil)
	for _, subject := range []string{"DIVP", "SOOAD", "AI"} {
		if w := s.do(t, markJSON("2024-03-04", subject, "Present")); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodDelete, "/days/2024-03-04/subjects/AI", nil)
	r.Header.Set("HX-Request", "true")
	w := s.do(t, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("HX-Redirect"); got != "/days/2024-03-04" {
		t.Fatalf("unexpected HX-Redirect %q", got)
	}
	if got := len(s.cache.Records()); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}

	w = s.do(t, httptest.NewRequest(http.MethodDelete, "/days/2024-03-04", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := len(s.cache.Records()); got != 0 {
		t.Fatalf("expected no records, got %d", got)
	}
}

func TestPages(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(t, markJSON("2024-03-04", "DIVP Lab", "Absent")); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	for _, tc := range []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, "Overall attendance"},
		{"/?period=month", http.StatusOK, "This Month"},
		{"/?period=year", http.StatusBadRequest, "unknown period"},
		{"/days/2024-03-05", http.StatusOK, "DIVP Lab"},
		{"/days/2024-03-06", http.StatusOK, `class="today"`},
		{"/days/2024-03-10", http.StatusOK, "No Classes Today"},
		{"/days/tomorrow", http.StatusBadRequest, "invalid date"},
		{"/subjects/", http.StatusOK, "PPL Lab"},
		{"/subjects/DIVP%20Lab", http.StatusOK, "Attendance Alert"},
		{"/subjects/Biology", http.StatusNotFound, "not a scheduled subject"},
		{"/style.css", http.StatusOK, "--present"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			w := s.do(t, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body)
			}
			if !strings.Contains(w.Body.String(), tc.contains) {
				t.Fatalf("expected body to contain %q:\n%s", tc.contains, w.Body)
			}
		})
	}

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/days/", nil))
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/days/2024-03-06" {
		t.Fatalf("expected redirect to today, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(t, markJSON("2024-03-04", "CD", "Present")); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/export/attendance.csv", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=attendance_2024-03-06.csv" {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Date" || rows[1][1] != "CD" {
		t.Fatalf("unexpected rows %v", rows)
	}

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/export/attendance.xlsx", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("expected workbook, got %d", w.Code)
	}
}

func TestCalendar(t *testing.T) {
	s := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodPost, "/calendars", strings.NewReader("weeks=2"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Accept", "application/json")
	w := s.do(t, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	var created map[string]string
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(created["url"], "webcal://") {
		t.Fatalf("unexpected url %q", created["url"])
	}

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/calendars/"+created["id"]+"/attendance.ics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("expected calendar, got %d: %s", w.Code, w.Body)
	}

	if w := s.do(t, httptest.NewRequest(http.MethodDelete, "/calendars/"+created["id"], nil)); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := s.do(t, httptest.NewRequest(http.MethodGet, "/calendars/"+created["id"]+"/attendance.ics", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

type failingRepository struct {
	attendance.Repository
	err error
}

func (f *failingRepository) Upsert(context.Context, attendance.Date, string, attendance.Status) (attendance.Record, error) {
	return attendance.Record{}, f.err
}

func (f *failingRepository) ListAll(context.Context) ([]attendance.Record, error) {
	return nil, f.err
}

func TestStoreErrors(t *testing.T) {
	for _, tc := range []struct {
		err      error
		status   int
		contains string
	}{
		{attendance.Unavailable("upsert", errors.New("dial tcp: connection refused")), http.StatusServiceUnavailable, "Connection error"},
		{attendance.OperationFailed("upsert", errors.New("permission denied for table attendance")), http.StatusBadGateway, "Error marking attendance: permission denied for table attendance"},
	} {
		s := newTestServer(t, func(*badger.DB) attendance.Repository {
			return &failingRepository{err: tc.err}
		})
		w := s.do(t, markJSON("2024-03-04", "DIVP", "Present"))
		if w.Code != tc.status {
			t.Fatalf("expected %d, got %d", tc.status, w.Code)
		}
		if !strings.Contains(w.Body.String(), tc.contains) {
			t.Fatalf("expected %q in %s", tc.contains, w.Body)
		}
		if len(s.cache.Records()) != 0 {
			t.Fatal("expected cache to be unchanged")
		}

		w = s.do(t, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
		if w.Code != tc.status {
			t.Fatalf("refresh: expected %d, got %d", tc.status, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated request id, got %q", w.Header().Get(requestIDHeader))
	}

	id := uuid.NewString()
	r := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	r.Header.Set(requestIDHeader, id)
	if got := s.do(t, r).Header().Get(requestIDHeader); got != id {
		t.Fatalf("expected %q, got %q", id, got)
	}
}

func TestExportFailure(t *testing.T) {
	s := newTestServer(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failing := func(w io.Writer, _ []attendance.Record, _ *time.Location) error {
		io.WriteString(w, "Date,Subject")
		return errors.New("disk full")
	}

	w := httptest.NewRecorder()
	handleExport(logger, s.cache, time.UTC, now, "csv", failing)(w, httptest.NewRequest(http.MethodGet, "/export/attendance.csv", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "" {
		t.Fatalf("expected no attachment, got %q", got)
	}
	if strings.Contains(w.Body.String(), "Date,Subject") {
		t.Fatalf("expected partial export to be dropped, got %q", w.Body)
	}
}

package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/attendancetracker/internal/attendance"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS attendance (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	subject    TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('Present', 'Absent', 'Cancelled')),
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (date, subject)
)`,
	DriverPostgres: `
CREATE TABLE IF NOT EXISTS attendance (
	id         TEXT PRIMARY KEY,
	date       DATE NOT NULL,
	subject    TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('Present', 'Absent', 'Cancelled')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (date, subject)
)`,
}

type row struct {
	ID        string          `db:"id"`
	Date      attendance.Date `db:"date"`
	Subject   string          `db:"subject"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r row) record() (attendance.Record, error) {
	status, err := attendance.ParseStatus(r.Status)
	if err != nil {
		return attendance.Record{}, err
	}
	return attendance.Record{
		ID:        attendance.ID(r.ID),
		Date:      r.Date,
		Subject:   r.Subject,
		Status:    status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

var _ attendance.Repository = &Store{}

type Store struct {
	db *sqlx.DB
}

// Open connects to the database, waits for it to be ready and creates the
// attendance table if it does not exist.
func Open(ctx context.Context, driverName string, dsn string) (*Store, error) {
	schema, ok := schemas[driverName]
	if !ok {
		return nil, fmt.Errorf("%q: unsupported driver", driverName)
	}
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if driverName == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return attendance.Unavailable("ping", ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return attendance.Unavailable("ping", err)
}

func (s *Store) ListAll(ctx context.Context) ([]attendance.Record, error) {
	rows := []row{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, date, subject, status, created_at, updated_at FROM attendance ORDER BY date DESC, subject`); err != nil {
		return nil, classify("list attendance", err)
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		record, err := r.record()
		if err != nil {
			return nil, attendance.OperationFailed("list attendance", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) Upsert(ctx context.Context, date attendance.Date, subject string, status attendance.Status) (attendance.Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Record{}, classify("upsert attendance", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var existing row
	err = tx.GetContext(ctx, &existing, tx.Rebind(`SELECT id, date, subject, status, created_at, updated_at FROM attendance WHERE date = ? AND subject = ?`), date, subject)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = row{
			ID:        string(attendance.NewID()),
			Date:      date,
			Subject:   subject,
			Status:    string(status),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO attendance (id, date, subject, status, created_at, updated_at) VALUES (:id, :date, :subject, :status, :created_at, :updated_at)`, existing); err != nil {
			return attendance.Record{}, classify("insert attendance", err)
		}
	case err != nil:
		return attendance.Record{}, classify("find attendance", err)
	default:
		existing.Status = string(status)
		existing.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE attendance SET status = ?, updated_at = ? WHERE id = ?`), existing.Status, existing.UpdatedAt, existing.ID); err != nil {
			return attendance.Record{}, classify("update attendance", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return attendance.Record{}, classify("commit attendance", err)
	}
	return existing.record()
}

func (s *Store) DeleteOne(ctx context.Context, date attendance.Date, subject string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM attendance WHERE date = ? AND subject = ?`), date, subject); err != nil {
		return classify("delete attendance", err)
	}
	return nil
}

func (s *Store) DeleteAllForDate(ctx context.Context, date attendance.Date) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM attendance WHERE date = ?`), date); err != nil {
		return classify("delete attendance for date", err)
	}
	return nil
}

func classify(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return attendance.Unavailable(op, err)
	}
	return attendance.OperationFailed(op, err)
}

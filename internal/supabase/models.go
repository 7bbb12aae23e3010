package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/attendancetracker/internal/attendance"
)

// rowID is the primary key of a row. Tables use uuid or identity columns, so
// it is decoded from either a JSON string or a JSON number and kept opaque.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id %s: not a string or a number", data)
	}
	*id = rowID(n.String())
	return nil
}

type row struct {
	ID        rowID             `json:"id"`
	Date      attendance.Date   `json:"date"`
	Subject   string            `json:"subject"`
	Status    attendance.Status `json:"status"`
	CreatedAt *time.Time        `json:"created_at"`
	UpdatedAt *time.Time        `json:"updated_at"`
}

func (r row) record() (attendance.Record, error) {
	if r.ID == "" {
		return attendance.Record{}, errors.New("row without id")
	}
	if _, err := attendance.ParseStatus(string(r.Status)); err != nil {
		return attendance.Record{}, err
	}
	record := attendance.Record{
		ID:      attendance.ID(r.ID),
		Date:    r.Date,
		Subject: r.Subject,
		Status:  r.Status,
	}
	if r.CreatedAt != nil {
		record.CreatedAt = r.CreatedAt.UTC()
	}
	if r.UpdatedAt != nil {
		record.UpdatedAt = r.UpdatedAt.UTC()
	}
	return record, nil
}

type insertRow struct {
	Date    attendance.Date   `json:"date"`
	Subject string            `json:"subject"`
	Status  attendance.Status `json:"status"`
}

type updateRow struct {
	Status    attendance.Status `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e apiError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

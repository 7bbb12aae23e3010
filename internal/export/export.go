package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/attendancetracker/internal/attendance"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheetName       = "Attendance"
	createdAtLayout = "2006-01-02 15:04:05"
)

var Headers = []string{"Date", "Subject", "Status", "Created At"}

var ContentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Filename returns attendance_<date>.<format> for the day of now.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("attendance_%s.%s", now.Format(time.DateOnly), format)
}

// Rows renders records in the given order. Creation time is shown in loc.
func Rows(records []attendance.Record, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		createdAt := ""
		if !record.CreatedAt.IsZero() {
			createdAt = record.CreatedAt.In(loc).Format(createdAtLayout)
		}
		rows = append(rows, []string{
			record.Date.String(),
			record.Subject,
			string(record.Status),
			createdAt,
		})
	}
	return rows
}

func WriteCSV(w io.Writer, records []attendance.Record, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(Rows(records, loc)); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func WriteXLSX(w io.Writer, records []attendance.Record, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	for i, header := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}
	for i, row := range Rows(records, loc) {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

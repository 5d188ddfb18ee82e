package attendance

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/user"
)

// Status of a student on a given day.
type Status string

const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
)

var errInvalidStatus = errors.New("invalid attendance status")

// ParseStatus accepts P/A as well as present/absent, in any case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PRESENT":
		return StatusPresent, nil
	case "A", "ABSENT":
		return StatusAbsent, nil
	}
	return "", errInvalidStatus
}

func (s Status) Label() string {
	switch s {
	case StatusPresent:
		return "Present"
	case StatusAbsent:
		return "Absent"
	}
	return string(s)
}

// Record is the attendance of one student on one date. (StudentID, Date) is unique.
type Record struct {
	ID        int64     `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Date      time.Time `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	MarkedBy  *string   `json:"marked_by" db:"marked_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Summary struct {
	TotalDays   int     `json:"total_days"`
	PresentDays int     `json:"present_days"`
	AbsentDays  int     `json:"absent_days"`
	Percentage  float64 `json:"percentage"`
}

func Summarize(records []Record) Summary {
	var s Summary
	for _, rec := range records {
		s.TotalDays++
		if rec.Status == StatusPresent {
			s.PresentDays++
		} else {
			s.AbsentDays++
		}
	}
	s.Percentage = core.Percentage(s.PresentDays, s.TotalDays)
	return s
}

// StudentAttendance is what a student sees of their own attendance.
type StudentAttendance struct {
	Records []Record `json:"records"` // newest first
	Summary Summary  `json:"summary"`
}

// MarkRequest carries one status per student ID. Date defaults to today.
type MarkRequest struct {
	Date     string       `json:"date"`
	Statuses batch.Values `json:"statuses"`
}

type MarkResult struct {
	Date  time.Time  `json:"date"`
	Scope user.Scope `json:"scope"`
	batch.Result
}

// Counts holds the present and absent days of one student within a period.
type Counts struct {
	Present int `db:"present"`
	Absent  int `db:"absent"`
}

type ReportFilter struct {
	Month   int    `query:"month"`
	Year    int    `query:"year"`
	Class   string `query:"class"`
	Section string `query:"section"`
}

// period returns the first day of the month and the first day of the next one.
func (f ReportFilter) period() (time.Time, time.Time) {
	from := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

type ReportRow struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	Username   string  `json:"username"`
	Class      string  `json:"class"`
	Section    string  `json:"section"`
	RollNo     int     `json:"roll_no"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

type MonthlyReport struct {
	Month int         `json:"month"`
	Year  int         `json:"year"`
	Rows  []ReportRow `json:"rows"`
}

func (r MonthlyReport) Title() string {
	return "Attendance " + time.Month(r.Month).String() + " " + strconv.Itoa(r.Year)
}

// Table flattens the report for export.
func (r MonthlyReport) Table() core.Table {
	t := core.Table{
		Title:  r.Title(),
		Header: []string{"Student", "Username", "Class", "Section", "Roll No", "Present", "Absent", "Percentage"},
		Rows:   make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.Name,
			row.Username,
			row.Class,
			row.Section,
			strconv.Itoa(row.RollNo),
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Absent),
			strconv.FormatFloat(row.Percentage, 'f', 2, 64),
		})
	}
	return t
}

package marks

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/batch"
)

const DefaultExamName = "Unit Test"

// Grades and the lowest percentage that earns them.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
	GradeFail  = "Fail"
)

var errInvalidMarks = errors.New("marks must be a whole number between 0 and the total")

type Subject struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Class string `json:"class" db:"class_name"`
}

type NewSubject struct {
	Name  string `json:"name" validate:"required,max=100"`
	Class string `json:"class" validate:"required,max=20"`
}

func (ns *NewSubject) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Class = core.CleanString(ns.Class)
}

// Mark is the result of one student in one subject for one exam.
// (StudentID, SubjectID, ExamName) is unique.
type Mark struct {
	ID            int64     `json:"id" db:"id"`
	StudentID     string    `json:"student_id" db:"student_id"`
	SubjectID     int64     `json:"subject_id" db:"subject_id"`
	SubjectName   string    `json:"subject_name" db:"subject_name"`
	ExamName      string    `json:"exam_name" db:"exam_name"`
	MarksObtained *int      `json:"marks_obtained" db:"marks_obtained"`
	TotalMarks    *int      `json:"total_marks" db:"total_marks"`
	UploadedBy    *string   `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Graded reports whether both obtained and total marks are known.
func (m Mark) Graded() bool {
	return m.MarksObtained != nil && m.TotalMarks != nil
}

// Percentage is 0 for ungraded marks or a zero total.
func (m Mark) Percentage() float64 {
	if !m.Graded() {
		return 0
	}
	return core.Percentage(*m.MarksObtained, *m.TotalMarks)
}

func (m Mark) Grade() string {
	return Grade(m.Percentage())
}

func Grade(pct float64) string {
	switch {
	case pct >= 90:
		return GradeAPlus
	case pct >= 75:
		return GradeA
	case pct >= 60:
		return GradeB
	case pct >= 40:
		return GradeC
	}
	return GradeFail
}

// MarkView is a Mark with its derived values, as shown to students.
type MarkView struct {
	Mark
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Graded     bool    `json:"graded"`
}

func NewMarkView(m Mark) MarkView {
	return MarkView{Mark: m, Percentage: m.Percentage(), Grade: m.Grade(), Graded: m.Graded()}
}

type StudentMarks struct {
	Marks []MarkView `json:"marks"`
	Exams []string   `json:"exams"`
	Exam  string     `json:"selected_exam"`
}

type UploadRequest struct {
	SubjectID  int64        `json:"subject_id"`
	ExamName   string       `json:"exam_name"`
	TotalMarks int          `json:"total_marks"`
	Marks      batch.Values `json:"marks"`
}

type UploadResult struct {
	Subject    Subject `json:"subject"`
	ExamName   string  `json:"exam_name"`
	TotalMarks int     `json:"total_marks"`
	batch.Result
}

// obtainedParser reads a whole, non-negative number no greater than total.
func obtainedParser(total int) batch.ParseFunc[int] {
	return func(raw string) (int, error) {
		for _, r := range raw {
			if r < '0' || r > '9' {
				return 0, errInvalidMarks
			}
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n > total {
			return 0, errInvalidMarks
		}
		return n, nil
	}
}

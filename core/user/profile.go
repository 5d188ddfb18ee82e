package user

import (
	"time"

	"github.com/vidhyasetu/backend/core"
)

type TeacherProfile struct {
	UserID          string `json:"user_id" db:"user_id"`
	Designation     string `json:"designation" db:"designation"`
	Subject         string `json:"subject" db:"subject"`
	AssignedClass   string `json:"assigned_class" db:"assigned_class"`
	AssignedSection string `json:"assigned_section" db:"assigned_section"`
	Phone           string `json:"phone" db:"phone"`
}

// Scope returns the class and section the teacher is responsible for.
func (p TeacherProfile) Scope() Scope {
	return Scope{Class: p.AssignedClass, Section: p.AssignedSection}
}

type UpdateTeacherProfile struct {
	Designation     string `json:"designation"`
	Subject         string `json:"subject"`
	AssignedClass   string `json:"assigned_class"`
	AssignedSection string `json:"assigned_section"`
	Phone           string `json:"phone" validate:"omitempty,max=15"`
}

func (ut *UpdateTeacherProfile) clean() {
	ut.Designation = core.CleanString(ut.Designation)
	ut.Subject = core.CleanString(ut.Subject)
	ut.AssignedClass = core.CleanString(ut.AssignedClass)
	ut.AssignedSection = core.CleanString(ut.AssignedSection)
	ut.Phone = core.CleanString(ut.Phone)
}

func (ut UpdateTeacherProfile) apply(p TeacherProfile) TeacherProfile {
	p.Designation = ut.Designation
	p.Subject = ut.Subject
	p.AssignedClass = ut.AssignedClass
	p.AssignedSection = ut.AssignedSection
	p.Phone = ut.Phone
	return p
}

type StudentProfile struct {
	UserID      string    `json:"user_id" db:"user_id"`
	FatherName  string    `json:"father_name" db:"father_name"`
	MotherName  string    `json:"mother_name" db:"mother_name"`
	Phone       string    `json:"phone" db:"phone"`
	Address     string    `json:"address" db:"address"`
	DateOfBirth time.Time `json:"date_of_birth" db:"date_of_birth"`
	AdmissionNo string    `json:"admission_no" db:"admission_no"`
	Class       string    `json:"class" db:"student_class"`
	Section     string    `json:"section" db:"section"`
	RollNo      int       `json:"roll_no" db:"roll_no"`
	FeePaid     bool      `json:"fee_paid" db:"fee_paid"`
}

func (p StudentProfile) Scope() Scope {
	return Scope{Class: p.Class, Section: p.Section}
}

// Student is an identity joined with its student profile.
type Student struct {
	User    User           `json:"user"`
	Profile StudentProfile `json:"profile"`
}

// Scope is a class + section pair.
type Scope struct {
	Class   string `json:"class"`
	Section string `json:"section"`
}

func (s Scope) IsZero() bool { return s.Class == "" || s.Section == "" }

// StudentFilter narrows Students queries. Empty fields match everything.
// Results are always ordered by class, section and roll number.
type StudentFilter struct {
	Class   string   `query:"class"`
	Section string   `query:"section"`
	IDs     []string `query:"-"`
	Active  *bool    `query:"is_active"`
}

func (sf *StudentFilter) Clean() {
	sf.Class = core.CleanString(sf.Class)
	sf.Section = core.CleanString(sf.Section)
}

// ScopeFilter returns a filter selecting the active students of a scope.
func ScopeFilter(s Scope) StudentFilter {
	active := true
	return StudentFilter{Class: s.Class, Section: s.Section, Active: &active}
}

package user

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vidhyasetu/backend/core"
)

var (
	errDateOfBirthText      = "enter a valid date of birth (YYYY-MM-DD)"
	errStudentsRegisterText = "students must be registered through student registration"
	errAdmissionNoExists    = "a student with this admission number already exists"
)

// NewStudent is what an admin submits to enrol a student.
type NewStudent struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	FatherName  string `json:"father_name" validate:"required"`
	MotherName  string `json:"mother_name" validate:"required"`
	Phone       string `json:"phone" validate:"required,max=15"`
	Address     string `json:"address" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
	Class       string `json:"class" validate:"required,max=20"`
	Section     string `json:"section" validate:"required,max=5"`
	AdmissionNo string `json:"admission_no" validate:"omitempty,max=30"`

	dob time.Time
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.FatherName = core.CleanString(ns.FatherName)
	ns.MotherName = core.CleanString(ns.MotherName)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Class = core.CleanString(ns.Class)
	ns.Section = strings.ToUpper(core.CleanString(ns.Section))
	ns.AdmissionNo = strings.ToUpper(core.CleanString(ns.AdmissionNo))
}

// parseDOB reports an unreadable or future date of birth separately from missing fields.
func (ns *NewStudent) parseDOB() error {
	dob, err := core.ParseDate(ns.DateOfBirth)
	if err != nil || dob.After(core.NowFunc()) {
		return core.NewFieldError("date_of_birth", errDateOfBirthText)
	}
	ns.dob = dob
	return nil
}

// Validate checks required fields first, then the date of birth, then email uniqueness.
func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := ns.parseDOB(); err != nil {
		return err
	}
	if ns.Email != "" {
		return svc.CheckUniqueness(ctx, "", ns.Email)
	}
	return nil
}

// Registration is the result of a student registration. TemporaryPassword is shown once.
type Registration struct {
	Student           Student `json:"student"`
	TemporaryPassword string  `json:"temporary_password"`
	Attempts          int     `json:"-"`
}

// UsernameBase is lower(first + last + day of birth) without whitespace.
func UsernameBase(first, last string, dob time.Time) string {
	base := strings.ToLower(first + last + strconv.Itoa(dob.Day()))
	return strings.Join(strings.Fields(base), "")
}

// UsernameCandidate returns the n-th candidate for base: base, base1, base2...
func UsernameCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}

// TemporaryPassword is lower(first name) + "@" + birth year.
// Accounts created with it must change it at first login.
func TemporaryPassword(first string, dob time.Time) string {
	return strings.ToLower(strings.TrimSpace(first)) + "@" + strconv.Itoa(dob.Year())
}

// NextRollNo follows the current highest roll number of a scope (0 when empty).
func NextRollNo(maxRollNo int) int {
	return maxRollNo + 1
}

func generateAdmissionNo(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ADM" + strconv.Itoa(now.Year()) + strings.ToUpper(id[:6])
}

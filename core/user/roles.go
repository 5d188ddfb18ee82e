package user

import "github.com/pkg/errors"

// Role is the single role an identity holds.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	errInvalidRole = errors.New("invalid role")

	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	Roles = []RoleInfo{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Student", Value: RoleStudent},
	}
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", errInvalidRole
	}
	return r, nil
}

// Capability names one workflow an identity may perform.
type Capability string

const (
	CapManageUsers          Capability = "manage_users"
	CapRegisterStudents     Capability = "register_students"
	CapViewStudents         Capability = "view_students"
	CapMarkAttendance       Capability = "mark_attendance"
	CapViewOwnAttendance    Capability = "view_own_attendance"
	CapViewAttendanceReport Capability = "view_attendance_report"
	CapManageSubjects       Capability = "manage_subjects"
	CapUploadMarks          Capability = "upload_marks"
	CapViewOwnMarks         Capability = "view_own_marks"
	CapManageFees           Capability = "manage_fees"
	CapViewOwnFees          Capability = "view_own_fees"
	CapPayFees              Capability = "pay_fees"
	CapViewFeeReport        Capability = "view_fee_report"
	CapPostNotice           Capability = "post_notice"
	CapPostHomework         Capability = "post_homework"
	CapViewHomework         Capability = "view_homework"
)

// capabilities is the one place deciding who may do what.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageUsers:          true,
		CapRegisterStudents:     true,
		CapViewStudents:         true,
		CapViewAttendanceReport: true,
		CapManageSubjects:       true,
		CapManageFees:           true,
		CapViewFeeReport:        true,
		CapPostNotice:           true,
	},
	RoleTeacher: {
		CapViewStudents:         true,
		CapMarkAttendance:       true,
		CapViewAttendanceReport: true,
		CapUploadMarks:          true,
		CapViewFeeReport:        true,
		CapPostHomework:         true,
		CapViewHomework:         true,
	},
	RoleStudent: {
		CapViewOwnAttendance: true,
		CapViewOwnMarks:      true,
		CapViewOwnFees:       true,
		CapPayFees:           true,
		CapViewHomework:      true,
	},
}

// Can reports whether the identity may perform c. Deactivated identities can do nothing.
func (u User) Can(c Capability) bool {
	return u.IsActive && capabilities[u.Role][c]
}

func CanRegisterStudents(u User) bool     { return u.Can(CapRegisterStudents) }
func CanMarkAttendance(u User) bool       { return u.Can(CapMarkAttendance) }
func CanViewAttendanceReport(u User) bool { return u.Can(CapViewAttendanceReport) }
func CanUploadMarks(u User) bool          { return u.Can(CapUploadMarks) }
func CanManageFees(u User) bool           { return u.Can(CapManageFees) }
func CanPayFees(u User) bool              { return u.Can(CapPayFees) }
func CanViewFeeReport(u User) bool        { return u.Can(CapViewFeeReport) }

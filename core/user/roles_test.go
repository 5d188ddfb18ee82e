package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles {
		got, err := ParseRole(string(r))
		assert.NoError(t, err)
		assert.Equal(t, r, got)
	}
	for _, s := range []string{"", "ADMIN", "principal", "parent"} {
		_, err := ParseRole(s)
		assert.Equal(t, errInvalidRole, err, s)
	}
}

func TestCapabilities(t *testing.T) {
	admin := User{Role: RoleAdmin, IsActive: true}
	teacher := User{Role: RoleTeacher, IsActive: true}
	student := User{Role: RoleStudent, IsActive: true}
	inactiveTeacher := User{Role: RoleTeacher}
	unknown := User{Role: "principal", IsActive: true}

	tests := []struct {
		name string
		can  func(User) bool
		want map[*User]bool
	}{
		{"register students", CanRegisterStudents, map[*User]bool{&admin: true, &teacher: false, &student: false}},
		{"mark attendance", CanMarkAttendance, map[*User]bool{&admin: false, &teacher: true, &student: false, &inactiveTeacher: false}},
		{"attendance report", CanViewAttendanceReport, map[*User]bool{&admin: true, &teacher: true, &student: false}},
		{"upload marks", CanUploadMarks, map[*User]bool{&admin: false, &teacher: true, &student: false, &inactiveTeacher: false}},
		{"manage fees", CanManageFees, map[*User]bool{&admin: true, &teacher: false, &student: false}},
		{"pay fees", CanPayFees, map[*User]bool{&admin: false, &teacher: false, &student: true, &unknown: false}},
		{"fee report", CanViewFeeReport, map[*User]bool{&admin: true, &teacher: true, &student: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for usr, want := range tt.want {
				assert.Equal(t, want, tt.can(*usr), "role %q active %v", usr.Role, usr.IsActive)
			}
		})
	}
}

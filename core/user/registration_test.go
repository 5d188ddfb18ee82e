package user

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsernameBase(t *testing.T) {
	tests := []struct {
		first, last string
		dob         time.Time
		want        string
	}{
		{"Asha", "Rao", time.Date(2012, 5, 3, 0, 0, 0, 0, time.UTC), "asharao3"},
		{"Ravi Kumar", "Sharma", time.Date(2011, 1, 21, 0, 0, 0, 0, time.UTC), "ravikumarsharma21"},
		{" Meera ", "D'Souza", time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC), "meerad'souza31"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, UsernameBase(tt.first, tt.last, tt.dob))
		})
	}
}

func TestUsernameCandidate(t *testing.T) {
	assert.Equal(t, "asharao3", UsernameCandidate("asharao3", 0))
	assert.Equal(t, "asharao31", UsernameCandidate("asharao3", 1))
	assert.Equal(t, "asharao312", UsernameCandidate("asharao3", 12))
}

func TestTemporaryPassword(t *testing.T) {
	dob := time.Date(2012, 5, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "asha@2012", TemporaryPassword("Asha", dob))
	assert.Equal(t, "asha@2012", TemporaryPassword(" ASHA ", dob))
}

func TestNextRollNo(t *testing.T) {
	assert.Equal(t, 1, NextRollNo(0))
	assert.Equal(t, 8, NextRollNo(7))
}

func TestGenerateAdmissionNo(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a, b := generateAdmissionNo(now), generateAdmissionNo(now)
	assert.Regexp(t, regexp.MustCompile(`^ADM2025[0-9A-F]{6}$`), a)
	assert.NotEqual(t, a, b)
}

func TestScope(t *testing.T) {
	assert.True(t, Scope{}.IsZero())
	assert.True(t, Scope{Class: "6"}.IsZero())
	assert.False(t, Scope{Class: "6", Section: "A"}.IsZero())
	assert.Equal(t, Scope{Class: "6", Section: "A"}, TeacherProfile{AssignedClass: "6", AssignedSection: "A"}.Scope())
}

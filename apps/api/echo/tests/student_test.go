package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func Test_studentApi(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateAdmin(t, e.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, e.UserRepo, "teacher", "6", "A")
	asha := registerStudent(t, e, admin, "Asha", "Rao", "2012-05-03", "6", "A")
	ravi := registerStudent(t, e, admin, "Ravi", "Kumar", "2012-07-11", "6", "B")
	adminToken := getToken(t, e, admin)
	teacherToken := getToken(t, e, teacher)
	ashaToken := getToken(t, e, asha)

	newStudent := user.NewStudent{
		FirstName:   "Kiran",
		LastName:    "Das",
		FatherName:  "Anil Das",
		MotherName:  "Rita Das",
		Phone:       "9123456780",
		Address:     "4 Lake View",
		DateOfBirth: "2013-01-20",
		Class:       "6",
		Section:     "A",
	}
	futureBorn := newStudent
	futureBorn.DateOfBirth = "2999-01-01"
	badEmail := newStudent
	badEmail.Email = "not-an-email"
	takenEmail := newStudent
	takenEmail.Email = "admin@school.test"

	e.run(t, []httpTest{
		{
			name: "teachers cannot register", method: http.MethodPost, path: "/v1/students", token: teacherToken,
			body: marchallObj(t, newStudent), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     marchallObj(t, user.NewStudent{FirstName: "Kiran", LastName: "Das", Phone: "9123456780", Address: "x", FatherName: "y", MotherName: "z", Class: "6", Section: "A"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date_of_birth": "this field is required"}),
		},
		{
			name: "born in the future", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     marchallObj(t, futureBorn),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date_of_birth": "enter a valid date of birth (YYYY-MM-DD)"}),
		},
		{name: "bad email", method: http.MethodPost, path: "/v1/students", token: adminToken, body: marchallObj(t, badEmail), wantCode: http.StatusBadRequest},
		{name: "email taken", method: http.MethodPost, path: "/v1/students", token: adminToken, body: marchallObj(t, takenEmail), wantCode: http.StatusBadRequest},
		{name: "students cannot list", path: "/v1/students", token: ashaToken, wantCode: http.StatusForbidden},
		{name: "own record", path: "/v1/students/me", token: ashaToken},
		{name: "no student record for staff", path: "/v1/students/me", token: teacherToken, wantCode: http.StatusNotFound},
		{name: "student of scope", path: "/v1/students/" + asha.ID, token: teacherToken},
		{name: "student of another section", path: "/v1/students/" + ravi.ID, token: teacherToken, wantCode: http.StatusNotFound},
		{name: "admin sees any student", path: "/v1/students/" + ravi.ID, token: adminToken},
		{name: "unknown student", path: "/v1/students/nope", token: adminToken, wantCode: http.StatusNotFound},
	})

	rec := e.do(http.MethodPost, "/v1/students", adminToken, marchallObj(t, newStudent))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg user.Registration
	unmarshal(t, rec, &reg)
	assert.Equal(t, 2, reg.Student.Profile.RollNo)
	assert.Equal(t, "kirandas20", reg.Student.User.Username)
	assert.Equal(t, "kiran@2013", reg.TemporaryPassword)

	list := func(token, query string) []user.Student {
		rec := e.do(http.MethodGet, "/v1/students"+query, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var students []user.Student
		unmarshal(t, rec, &students)
		return students
	}

	// teachers are kept to their own section whatever they ask for
	scoped := list(teacherToken, "?class=6&section=B")
	require.Len(t, scoped, 2)
	for _, st := range scoped {
		assert.Equal(t, user.Scope{Class: "6", Section: "A"}, st.Profile.Scope())
	}

	assert.Len(t, list(adminToken, ""), 3)
	assert.Len(t, list(adminToken, "?class=6&section=B"), 1)
}

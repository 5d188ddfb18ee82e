package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core/dashboard"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/notice"
	testutil "github.com/vidhyasetu/backend/tests"
)

func Test_noticeApi(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateAdmin(t, e.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, e.UserRepo, "teacher", "6", "A")
	adminToken := getToken(t, e, admin)
	teacherToken := getToken(t, e, teacher)

	rec := e.do(http.MethodPost, "/v1/notices", adminToken, marchallObj(t, notice.NewNotice{Title: " Sports Day ", Message: "Friday, 9am."}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sports notice.Notice
	unmarshal(t, rec, &sports)
	assert.Equal(t, "Sports Day", sports.Title)
	assert.True(t, sports.IsActive)

	e.run(t, []httpTest{
		{
			name: "title required", method: http.MethodPost, path: "/v1/notices", token: adminToken,
			body:     marchallObj(t, notice.NewNotice{Message: "no title"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "teachers cannot post", method: http.MethodPost, path: "/v1/notices", token: teacherToken,
			body: marchallObj(t, notice.NewNotice{Title: "Holiday", Message: "Monday"}), wantCode: http.StatusForbidden,
		},
		{name: "teachers cannot list all", path: "/v1/notices?all=true", token: teacherToken, wantCode: http.StatusForbidden},
		{
			name: "unknown notice", method: http.MethodPost, path: "/v1/notices/999/deactivate", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "notice not found"}),
		},
		{name: "bad id", method: http.MethodPost, path: "/v1/notices/abc/deactivate", token: adminToken, wantCode: http.StatusNotFound},
	})

	list := func(token, query string) []notice.Notice {
		rec := e.do(http.MethodGet, "/v1/notices"+query, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ns []notice.Notice
		unmarshal(t, rec, &ns)
		return ns
	}
	assert.Len(t, list(teacherToken, ""), 1)

	rec = e.do(http.MethodPost, fmt.Sprintf("/v1/notices/%d/deactivate", sports.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &sports)
	assert.False(t, sports.IsActive)

	assert.Empty(t, list(teacherToken, ""))
	assert.Len(t, list(adminToken, "?all=true"), 1)

	rec = e.do(http.MethodPost, fmt.Sprintf("/v1/notices/%d/activate", sports.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, list(teacherToken, ""), 1)
}

func Test_homeworkApi(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateAdmin(t, e.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, e.UserRepo, "teacher", "6", "A")
	asha := registerStudent(t, e, admin, "Asha", "Rao", "2012-05-03", "6", "A")
	ravi := registerStudent(t, e, admin, "Ravi", "Kumar", "2012-07-11", "6", "B")
	teacherToken := getToken(t, e, teacher)

	rec := e.do(http.MethodPost, "/v1/homework", teacherToken, marchallObj(t, homework.NewHomework{
		Title:       "Fractions",
		Description: "Exercise 4.2",
		DueDate:     "2025-07-10",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hw homework.Homework
	unmarshal(t, rec, &hw)
	assert.Equal(t, "6", hw.Class)
	assert.Equal(t, "A", hw.Section)
	require.NotNil(t, hw.TeacherID)
	assert.Equal(t, teacher.ID, *hw.TeacherID)

	e.run(t, []httpTest{
		{
			name: "bad due date", method: http.MethodPost, path: "/v1/homework", token: teacherToken,
			body:     marchallObj(t, homework.NewHomework{Title: "Essay", DueDate: "10/07/2025"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "admins do not post homework", method: http.MethodPost, path: "/v1/homework", token: getToken(t, e, admin),
			body: marchallObj(t, homework.NewHomework{Title: "Essay", DueDate: "2025-07-10"}), wantCode: http.StatusForbidden,
		},
		{name: "admins do not view homework", path: "/v1/homework", token: getToken(t, e, admin), wantCode: http.StatusForbidden},
	})

	for _, tt := range []struct {
		name  string
		token string
		want  int
	}{
		{"teacher sees own posts", teacherToken, 1},
		{"student of the section", getToken(t, e, asha), 1},
		{"student of another section", getToken(t, e, ravi), 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodGet, "/v1/homework", tt.token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var list []homework.Homework
			unmarshal(t, rec, &list)
			assert.Len(t, list, tt.want)
		})
	}
}

func Test_dashboardApi(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateAdmin(t, e.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, e.UserRepo, "teacher", "6", "A")
	asha := registerStudent(t, e, admin, "Asha", "Rao", "2012-05-03", "6", "A")
	registerStudent(t, e, admin, "Ravi", "Kumar", "2012-07-11", "6", "B")

	rec := e.do(http.MethodGet, "/v1/dashboard", getToken(t, e, admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ad dashboard.AdminDashboard
	unmarshal(t, rec, &ad)
	assert.Equal(t, 2, ad.TotalStudents)
	assert.Equal(t, 1, ad.TotalTeachers)

	rec = e.do(http.MethodGet, "/v1/dashboard", getToken(t, e, teacher))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var td dashboard.TeacherDashboard
	unmarshal(t, rec, &td)
	assert.Equal(t, 1, td.Students)
	assert.Equal(t, "6", td.Profile.AssignedClass)

	rec = e.do(http.MethodGet, "/v1/dashboard", getToken(t, e, asha))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sd dashboard.StudentDashboard
	unmarshal(t, rec, &sd)
	assert.Equal(t, asha.ID, sd.Profile.UserID)
	assert.Equal(t, 1, sd.Profile.RollNo)
	assert.Zero(t, sd.Attendance.TotalDays)
}

package dashboard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/dashboard"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func TestFor(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, env.UserRepo, "admin")
	teacher := testutil.CreateTeacher(t, env.UserRepo, "teacher", "6", "A")
	unassigned := testutil.CreateTeacher(t, env.UserRepo, "unassigned", "", "")
	asha := testutil.RegisterStudent(t, env, admin, "Asha", "Rao", "2012-05-03", "6", "A")
	testutil.RegisterStudent(t, env, admin, "Ravi", "Kumar", "2012-07-11", "6", "B")

	july := testutil.CreateStructure(t, env.FeesRepo, "6", "2025-07", "500")
	_, err := env.Fees.OpenPeriod(ctx, admin, july.ID)
	require.NoError(t, err)

	maths, err := env.Marks.CreateSubject(ctx, admin, marks.NewSubject{Name: "Maths", Class: "6"})
	require.NoError(t, err)
	_, err = env.Marks.Upload(ctx, teacher, marks.UploadRequest{SubjectID: maths.ID, TotalMarks: 50, Marks: batch.Values{asha.User.ID: "45"}})
	require.NoError(t, err)
	_, err = env.Attendance.Mark(ctx, teacher, attendance.MarkRequest{Date: "2025-07-01", Statuses: batch.Values{asha.User.ID: "P"}})
	require.NoError(t, err)
	_, err = env.Homework.Post(ctx, teacher, homework.NewHomework{Title: "Fractions", DueDate: "2025-07-10"})
	require.NoError(t, err)
	_, err = env.Notices.Post(ctx, admin, notice.NewNotice{Title: "Holiday", Message: "Closed on Monday"})
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		d, err := env.Dashboard.For(ctx, admin)
		require.NoError(t, err)
		ad, ok := d.(dashboard.AdminDashboard)
		require.True(t, ok)
		assert.Equal(t, 2, ad.TotalStudents)
		assert.Equal(t, 2, ad.TotalTeachers)
		assert.Equal(t, 2, ad.Fees.Records)
		assert.Equal(t, 2, ad.Fees.PendingRecords)
		assert.Equal(t, "1000.00", ad.Fees.Totals.Pending.StringFixed(2))
		assert.Len(t, ad.Notices, 1)
	})

	t.Run("teacher", func(t *testing.T) {
		d, err := env.Dashboard.For(ctx, teacher)
		require.NoError(t, err)
		td, ok := d.(dashboard.TeacherDashboard)
		require.True(t, ok)
		assert.Equal(t, "6", td.Profile.AssignedClass)
		assert.Equal(t, 1, td.Students)
		require.Len(t, td.Homework, 1)
		assert.Equal(t, "Fractions", td.Homework[0].Title)
		assert.Len(t, td.Notices, 1)

		td, err = env.Dashboard.Teacher(ctx, unassigned)
		require.NoError(t, err)
		assert.Zero(t, td.Students)
		assert.Empty(t, td.Homework)
	})

	t.Run("student", func(t *testing.T) {
		usr, err := env.Users.GetByID(ctx, asha.User.ID)
		require.NoError(t, err)
		d, err := env.Dashboard.For(ctx, usr)
		require.NoError(t, err)
		sd, ok := d.(dashboard.StudentDashboard)
		require.True(t, ok)
		assert.Equal(t, 1, sd.Profile.RollNo)
		assert.Equal(t, attendance.Summary{TotalDays: 1, PresentDays: 1, Percentage: 100}, sd.Attendance)
		require.Len(t, sd.Marks, 1)
		assert.Equal(t, 90.0, sd.Marks[0].Percentage)
		assert.Equal(t, marks.GradeAPlus, sd.Marks[0].Grade)
		assert.Equal(t, "500.00", sd.Fees.Pending.StringFixed(2))
		require.Len(t, sd.Homework, 1)
		assert.Len(t, sd.Notices, 1)
	})

	t.Run("denied", func(t *testing.T) {
		inactive := testutil.CreateUser(t, env.UserRepo, user.RoleAdmin, "former", "", "", false)
		_, err := env.Dashboard.For(ctx, inactive)
		assert.Equal(t, core.ErrPermissionDenied, err)

		_, err = env.Dashboard.Admin(ctx, teacher)
		assert.Equal(t, core.ErrPermissionDenied, err)
		_, err = env.Dashboard.Student(ctx, admin)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})
}

package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    attendance.Status
		wantErr bool
	}{
		{in: "P", want: attendance.StatusPresent},
		{in: "a", want: attendance.StatusAbsent},
		{in: " present ", want: attendance.StatusPresent},
		{in: "ABSENT", want: attendance.StatusAbsent},
		{in: "L", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := attendance.ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, attendance.Summary{}, attendance.Summarize(nil))

	records := []attendance.Record{
		{Status: attendance.StatusPresent},
		{Status: attendance.StatusPresent},
		{Status: attendance.StatusAbsent},
	}
	assert.Equal(t, attendance.Summary{TotalDays: 3, PresentDays: 2, AbsentDays: 1, Percentage: 66.67}, attendance.Summarize(records))
}

type fixture struct {
	env             *testutil.Env
	admin, teacher  user.User
	asha, ravi, out user.Student
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	admin := testutil.CreateAdmin(t, env.UserRepo, "admin")
	return fixture{
		env:     env,
		admin:   admin,
		teacher: testutil.CreateTeacher(t, env.UserRepo, "teacher", "6", "A"),
		asha:    testutil.RegisterStudent(t, env, admin, "Asha", "Rao", "2012-05-03", "6", "A"),
		ravi:    testutil.RegisterStudent(t, env, admin, "Ravi", "Kumar", "2012-07-11", "6", "A"),
		out:     testutil.RegisterStudent(t, env, admin, "Meera", "Das", "2011-02-14", "7", "B"),
	}
}

func TestMark(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.env.Attendance.Mark(ctx, f.teacher, attendance.MarkRequest{
		Date: "2025-07-01",
		Statuses: batch.Values{
			f.asha.User.ID: "P",
			f.ravi.User.ID: "late",
			f.out.User.ID:  "P",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2025-07-01"), res.Date)
	assert.Equal(t, user.Scope{Class: "6", Section: "A"}, res.Scope)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, map[string]string{
		f.ravi.User.ID: batch.ReasonInvalid,
		f.out.User.ID:  batch.ReasonOutOfScope,
	}, res.Skipped)

	// out of scope students are never written
	summary, err := f.env.Attendance.Summary(ctx, f.out.User.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalDays)

	// marking again replaces the record of that date
	res, err = f.env.Attendance.Mark(ctx, f.teacher, attendance.MarkRequest{
		Date:     "2025-07-01",
		Statuses: batch.Values{f.asha.User.ID: "absent", f.ravi.User.ID: "P"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	assert.Empty(t, res.Skipped)

	usr, err := f.env.Users.GetByID(ctx, f.asha.User.ID)
	require.NoError(t, err)
	own, err := f.env.Attendance.ForStudent(ctx, usr)
	require.NoError(t, err)
	require.Len(t, own.Records, 1)
	assert.Equal(t, attendance.StatusAbsent, own.Records[0].Status)
	require.NotNil(t, own.Records[0].MarkedBy)
	assert.Equal(t, f.teacher.ID, *own.Records[0].MarkedBy)
	assert.Equal(t, attendance.Summary{TotalDays: 1, AbsentDays: 1}, own.Summary)
}

func TestMark_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	unassigned := testutil.CreateTeacher(t, f.env.UserRepo, "unassigned", "6", "")

	_, err := f.env.Attendance.Mark(ctx, f.admin, attendance.MarkRequest{Statuses: batch.Values{f.asha.User.ID: "P"}})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.env.Attendance.Mark(ctx, f.teacher, attendance.MarkRequest{Date: "01-07-2025"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "date", vErr.Fields[0].Field)

	_, err = f.env.Attendance.Mark(ctx, unassigned, attendance.MarkRequest{Statuses: batch.Values{f.asha.User.ID: "P"}})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, user.ErrNoAssignedScope, vErr.Err)
}

func TestMark_DefaultsToToday(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.env.Attendance.Mark(ctx, f.teacher, attendance.MarkRequest{Statuses: batch.Values{f.asha.User.ID: "P"}})
	require.NoError(t, err)
	assert.Equal(t, core.Today(f.env.Conf.School.Location()), res.Date)
	// ravi got no status
	assert.Equal(t, map[string]string{f.ravi.User.ID: batch.ReasonMissing}, res.Skipped)
}

func TestForStudent_Denied(t *testing.T) {
	f := setup(t)
	_, err := f.env.Attendance.ForStudent(context.Background(), f.teacher)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestMonthlyReport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mark := func(date string, statuses batch.Values) {
		t.Helper()
		_, err := f.env.Attendance.Mark(ctx, f.teacher, attendance.MarkRequest{Date: date, Statuses: statuses})
		require.NoError(t, err)
	}
	mark("2025-07-01", batch.Values{f.asha.User.ID: "P", f.ravi.User.ID: "A"})
	mark("2025-07-02", batch.Values{f.asha.User.ID: "P", f.ravi.User.ID: "P"})
	mark("2025-07-31", batch.Values{f.asha.User.ID: "A"})
	mark("2025-08-01", batch.Values{f.asha.User.ID: "P", f.ravi.User.ID: "P"})

	report, err := f.env.Attendance.MonthlyReport(ctx, f.admin, attendance.ReportFilter{Month: 7, Year: 2025, Class: "6", Section: "A"})
	require.NoError(t, err)
	assert.Equal(t, "Attendance July 2025", report.Title())
	require.Len(t, report.Rows, 2)

	asha, ravi := report.Rows[0], report.Rows[1]
	assert.Equal(t, f.asha.User.ID, asha.StudentID)
	assert.Equal(t, 1, asha.RollNo)
	assert.Equal(t, 2, asha.Present)
	assert.Equal(t, 1, asha.Absent)
	assert.Equal(t, 66.67, asha.Percentage)
	assert.Equal(t, 1, ravi.Present)
	assert.Equal(t, 1, ravi.Absent)
	assert.Equal(t, 50.0, ravi.Percentage)

	table := report.Table()
	assert.Equal(t, "Percentage", table.Header[len(table.Header)-1])
	assert.Equal(t, []string{"Asha Rao", "asharao3", "6", "A", "1", "2", "1", "66.67"}, table.Rows[0])

	// every student without records shows zeros
	report, err = f.env.Attendance.MonthlyReport(ctx, f.teacher, attendance.ReportFilter{Month: 6, Year: 2025})
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	for _, row := range report.Rows {
		assert.Zero(t, row.Present+row.Absent)
		assert.Zero(t, row.Percentage)
	}
}

func TestMonthlyReport_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	student, err := f.env.Users.GetByID(ctx, f.asha.User.ID)
	require.NoError(t, err)
	_, err = f.env.Attendance.MonthlyReport(ctx, student, attendance.ReportFilter{})
	assert.Equal(t, core.ErrPermissionDenied, err)

	tests := []struct {
		filter attendance.ReportFilter
		field  string
	}{
		{attendance.ReportFilter{Month: 13, Year: 2025}, "month"},
		{attendance.ReportFilter{Month: -1, Year: 2025}, "month"},
		{attendance.ReportFilter{Month: 1, Year: 99}, "year"},
	}
	for _, tt := range tests {
		_, err := f.env.Attendance.MonthlyReport(ctx, f.admin, tt.filter)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, tt.field, vErr.Fields[0].Field)
	}
}

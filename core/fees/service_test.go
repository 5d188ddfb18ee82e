package fees_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func TestSum(t *testing.T) {
	records := []fees.Record{
		{Amount: decimal.RequireFromString("500"), Status: fees.StatusPaid},
		{Amount: decimal.RequireFromString("500"), Status: fees.StatusPending},
		{Amount: decimal.RequireFromString("0.25"), Status: fees.StatusPending},
	}
	totals := fees.Sum(records)
	assert.Equal(t, "500.00", totals.Paid.StringFixed(2))
	assert.Equal(t, "500.25", totals.Pending.StringFixed(2))
	assert.Equal(t, "1000.25", totals.Total.StringFixed(2))

	empty := fees.Sum(nil)
	assert.Equal(t, "0.00", empty.Total.StringFixed(2))
}

type fixture struct {
	env          *testutil.Env
	admin        user.User
	teacher      user.User
	asha, ravi   user.Student
	other        user.Student
	july, august fees.Structure
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	admin := testutil.CreateAdmin(t, env.UserRepo, "admin")
	return fixture{
		env:     env,
		admin:   admin,
		teacher: testutil.CreateTeacher(t, env.UserRepo, "teacher", "6", "A"),
		asha:    testutil.RegisterStudent(t, env, admin, "Asha", "Rao", "2012-05-03", "6", "A"),
		ravi:    testutil.RegisterStudent(t, env, admin, "Ravi", "Kumar", "2012-07-11", "6", "B"),
		other:   testutil.RegisterStudent(t, env, admin, "Meera", "Das", "2011-02-14", "7", "A"),
		july:    testutil.CreateStructure(t, env.FeesRepo, "6", "2025-07", "500"),
		august:  testutil.CreateStructure(t, env.FeesRepo, "6", "2025-08", "500"),
	}
}

// open creates the pending records of the structures.
func (f fixture) open(t *testing.T, structures ...fees.Structure) {
	t.Helper()
	for _, s := range structures {
		_, err := f.env.Fees.OpenPeriod(context.Background(), f.admin, s.ID)
		require.NoError(t, err)
	}
}

func (f fixture) studentFees(t *testing.T, st user.Student) (user.User, fees.StudentFees) {
	t.Helper()
	usr, err := f.env.Users.GetByID(context.Background(), st.User.ID)
	require.NoError(t, err)
	sf, err := f.env.Fees.ForStudent(context.Background(), usr)
	require.NoError(t, err)
	return usr, sf
}

func TestCreateStructure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	s, err := f.env.Fees.CreateStructure(ctx, f.admin, fees.NewStructure{Class: " 7 ", Month: "2025-07", Amount: decimal.RequireFromString("750.505")})
	require.NoError(t, err)
	assert.Equal(t, "7", s.Class)
	assert.Equal(t, "750.51", s.Amount.StringFixed(2))

	_, err = f.env.Fees.CreateStructure(ctx, f.teacher, fees.NewStructure{Class: "7", Month: "2025-09", Amount: decimal.NewFromInt(1)})
	assert.Equal(t, core.ErrPermissionDenied, err)

	tests := []struct {
		name  string
		ns    fees.NewStructure
		field string
	}{
		{name: "duplicate", ns: fees.NewStructure{Class: "6", Month: "2025-07", Amount: decimal.NewFromInt(100)}, field: "month"},
		{name: "zero amount", ns: fees.NewStructure{Class: "6", Month: "2025-09"}, field: "amount"},
		{name: "negative amount", ns: fees.NewStructure{Class: "6", Month: "2025-09", Amount: decimal.NewFromInt(-5)}, field: "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Fees.CreateStructure(ctx, f.admin, tt.ns)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Fields[0].Field)
		})
	}

	_, err = f.env.Fees.CreateStructure(ctx, f.admin, fees.NewStructure{Class: "6", Month: "July", Amount: decimal.NewFromInt(1)})
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, "month", vErrs[0].Field())

	structures, err := f.env.Fees.Structures(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, []fees.Structure{f.july, f.august}, structures)
}

func TestOpenPeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n, err := f.env.Fees.OpenPeriod(ctx, f.admin, f.july.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "both sections of class 6")

	n, err = f.env.Fees.OpenPeriod(ctx, f.admin, f.july.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "opening twice creates nothing")

	_, err = f.env.Fees.OpenPeriod(ctx, f.teacher, f.july.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.env.Fees.OpenPeriod(ctx, f.admin, 9999)
	assert.Equal(t, fees.ErrStructureNotFound, errors.Cause(err))

	_, sf := f.studentFees(t, f.asha)
	require.Len(t, sf.Records, 1)
	assert.Equal(t, fees.StatusPending, sf.Records[0].Status)
	assert.Equal(t, "2025-07", sf.Records[0].Month)

	_, sf = f.studentFees(t, f.other)
	assert.Empty(t, sf.Records)
}

func TestEnroll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	late := testutil.RegisterStudent(t, f.env, f.admin, "Kiran", "Shah", "2012-01-09", "6", "A")
	n, err := f.env.Fees.Enroll(ctx, late.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.env.Fees.Enroll(ctx, late.User.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.env.Fees.Enroll(ctx, f.other.User.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "no structure for class 7")
}

func TestPay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.open(t, f.july, f.august)

	usr, sf := f.studentFees(t, f.asha)
	require.Len(t, sf.Records, 2)
	assert.Equal(t, "0.00", sf.Totals.Paid.StringFixed(2))
	assert.Equal(t, "1000.00", sf.Totals.Pending.StringFixed(2))

	rec, err := f.env.Fees.Pay(ctx, usr, sf.Records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, rec.Status)
	require.NotNil(t, rec.PaidOn)
	assert.Equal(t, core.Today(f.env.Conf.School.Location()), *rec.PaidOn)
	require.NotNil(t, rec.TransactionID)
	assert.Regexp(t, `^TXN-`, *rec.TransactionID)

	_, sf = f.studentFees(t, f.asha)
	assert.Equal(t, "500.00", sf.Totals.Paid.StringFixed(2))
	assert.Equal(t, "500.00", sf.Totals.Pending.StringFixed(2))
	assert.Equal(t, "1000.00", sf.Totals.Total.StringFixed(2))

	profile, err := f.env.Users.StudentProfile(ctx, f.asha.User.ID)
	require.NoError(t, err)
	assert.False(t, profile.FeePaid, "a record is still pending")

	// paying twice
	_, err = f.env.Fees.Pay(ctx, usr, rec.ID)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, fees.ErrAlreadyPaid, vErr.Err)

	// someone else's fee, or one that doesn't exist
	ravi, raviFees := f.studentFees(t, f.ravi)
	_, err = f.env.Fees.Pay(ctx, ravi, sf.Records[1].ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.env.Fees.Pay(ctx, ravi, 9999)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.env.Fees.Pay(ctx, f.admin, raviFees.Records[0].ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	// settling the last pending record raises the flag
	_, err = f.env.Fees.Pay(ctx, usr, sf.Records[1].ID)
	require.NoError(t, err)
	profile, err = f.env.Users.StudentProfile(ctx, f.asha.User.ID)
	require.NoError(t, err)
	assert.True(t, profile.FeePaid)

	// a new period lowers it again
	september := testutil.CreateStructure(t, f.env.FeesRepo, "6", "2025-09", "500")
	f.open(t, september)
	profile, err = f.env.Users.StudentProfile(ctx, f.asha.User.ID)
	require.NoError(t, err)
	assert.False(t, profile.FeePaid)
}

func TestReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.open(t, f.july)

	usr, sf := f.studentFees(t, f.asha)
	recordID := sf.Records[0].ID

	_, err := f.env.Fees.Receipt(ctx, usr, recordID)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, fees.ErrNotPaid, vErr.Err)

	_, err = f.env.Fees.Pay(ctx, usr, recordID)
	require.NoError(t, err)

	receipt, err := f.env.Fees.Receipt(ctx, usr, recordID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", receipt.StudentName)
	assert.Equal(t, f.asha.Profile.AdmissionNo, receipt.AdmissionNo)
	assert.Equal(t, 1, receipt.RollNo)
	assert.Equal(t, "500.00", receipt.Record.Amount.StringFixed(2))
	assert.Equal(t, "RCPT-"+strconv.FormatInt(recordID, 10), receipt.Number())

	// staff may see it, other students may not
	_, err = f.env.Fees.Receipt(ctx, f.admin, recordID)
	assert.NoError(t, err)
	ravi, _ := f.studentFees(t, f.ravi)
	_, err = f.env.Fees.Receipt(ctx, ravi, recordID)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestReport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seventh := testutil.CreateStructure(t, f.env.FeesRepo, "7", "2025-07", "800")
	f.open(t, f.july, f.august, seventh)

	usr, sf := f.studentFees(t, f.asha)
	_, err := f.env.Fees.Pay(ctx, usr, sf.Records[0].ID)
	require.NoError(t, err)

	report, err := f.env.Fees.Report(ctx, f.teacher, fees.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 5)
	assert.Equal(t, "500.00", report.Totals.Paid.StringFixed(2))
	assert.Equal(t, "2300.00", report.Totals.Pending.StringFixed(2))
	assert.Equal(t, "2800.00", report.Totals.Total.StringFixed(2))

	// ordered by class, section, roll number then month
	first := report.Rows[0]
	assert.Equal(t, "asharao3", first.Username)
	assert.Equal(t, "2025-07", first.Month)
	assert.Equal(t, fees.StatusPaid, first.Status)
	assert.Equal(t, "7", report.Rows[4].Class)

	require.Len(t, report.ByClass, 2)
	assert.Equal(t, "6", report.ByClass[0].Class)
	assert.Equal(t, "500.00", report.ByClass[0].Collected.StringFixed(2))
	assert.Equal(t, "1500.00", report.ByClass[0].Pending.StringFixed(2))
	assert.Equal(t, "800.00", report.ByClass[1].Pending.StringFixed(2))

	tables := report.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "Fee Report", tables[0].Title)
	assert.Len(t, tables[0].Rows, 5)
	assert.Equal(t, []string{"Total", "500.00", "2300.00"}, tables[1].Rows[len(tables[1].Rows)-1])

	// filters
	report, err = f.env.Fees.Report(ctx, f.admin, fees.ReportFilter{Class: "6", Month: "2025-07", Status: "pending"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "ravikumar11", report.Rows[0].Username)
	assert.Equal(t, "Fee Report - Class 6 - 2025-07", report.Title())

	// validation and access
	_, err = f.env.Fees.Report(ctx, f.admin, fees.ReportFilter{Status: "late"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "status", vErr.Fields[0].Field)

	_, err = f.env.Fees.Report(ctx, f.admin, fees.ReportFilter{Month: "07-2025"})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "month", vErr.Fields[0].Field)

	_, err = f.env.Fees.Report(ctx, usr, fees.ReportFilter{})
	assert.Equal(t, core.ErrPermissionDenied, err)

	ov, err := f.env.Fees.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, ov.Records)
	assert.Equal(t, 4, ov.PendingRecords)
	assert.Equal(t, "2800.00", ov.Totals.Total.StringFixed(2))
}

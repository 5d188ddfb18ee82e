package fees

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

// constraints reported by the storage layer
const (
	ConstraintClassMonth       = "fee_structure_class_month_key"
	ConstraintStudentStructure = "student_fee_student_structure_key"
	ConstraintTransactionID    = "student_fee_transaction_id_key"
)

var (
	ErrStructureNotFound = errors.New("fee structure not found")
	ErrRecordNotFound    = errors.New("fee record not found")
	ErrAlreadyPaid       = errors.New("this fee has already been paid")
	ErrNotPaid           = errors.New("this fee has not been paid yet")

	errAmountText          = "amount must be greater than zero"
	errStructureExistsText = "a fee structure for this class and month already exists"
	errStatusText          = "status must be PAID or PENDING"
	errMonthText           = "enter a valid month (YYYY-MM)"
)

type (
	Repository interface {
		CreateStructure(ctx context.Context, s Structure) (Structure, error)
		GetStructure(ctx context.Context, id int64) (Structure, error)
		// ListStructures returns structures ordered by class then month; empty class lists all.
		ListStructures(ctx context.Context, class string) ([]Structure, error)
		// CreatePendingRecords adds a pending record of the structure for every student that has
		// none yet and returns the students that got one.
		CreatePendingRecords(ctx context.Context, structureID int64, studentIDs ...string) ([]string, error)
		GetRecord(ctx context.Context, id int64) (Record, error)
		// ListRecords returns records ordered by month then class.
		ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
		// MarkPaid moves a pending record to paid. ErrAlreadyPaid when it is not pending anymore.
		MarkPaid(ctx context.Context, id int64, paidOn time.Time, transactionID string) (Record, error)
	}

	Service interface {
		CreateStructure(ctx context.Context, actor user.User, ns NewStructure) (Structure, error)
		Structures(ctx context.Context, class string) ([]Structure, error)
		OpenPeriod(ctx context.Context, actor user.User, structureID int64) (int, error)
		Enroll(ctx context.Context, studentID string) (int, error)
		ForStudent(ctx context.Context, actor user.User) (StudentFees, error)
		Totals(ctx context.Context, studentID string) (Totals, error)
		Pay(ctx context.Context, actor user.User, recordID int64) (Record, error)
		Receipt(ctx context.Context, actor user.User, recordID int64) (Receipt, error)
		Report(ctx context.Context, actor user.User, filter ReportFilter) (Report, error)
		Overview(ctx context.Context) (Overview, error)
	}

	service struct {
		conf     *core.Config
		repo     Repository
		tx       core.Transactor
		users    user.Service
		validate *validator.Validate
		logger   core.Logger
	}
)

// Overview sums up every fee record of the school.
type Overview struct {
	Records        int    `json:"total_fees"`
	PendingRecords int    `json:"pending_fees"`
	Totals         Totals `json:"totals"`
}

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, tx core.Transactor, users user.Service, validate *validator.Validate, logger core.Logger) Service {
	return &service{conf: conf, repo: repo, tx: tx, users: users, validate: validate, logger: logger}
}

func (svc *service) CreateStructure(ctx context.Context, actor user.User, ns NewStructure) (Structure, error) {
	if !user.CanManageFees(actor) {
		return Structure{}, core.ErrPermissionDenied
	}
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Structure{}, err
	}
	if !ns.Amount.IsPositive() {
		return Structure{}, core.NewFieldError("amount", errAmountText)
	}

	s, err := svc.repo.CreateStructure(ctx, Structure{Class: ns.Class, Month: ns.Month, Amount: ns.Amount.Round(2)})
	if err != nil {
		if core.IsConflictOn(err, ConstraintClassMonth) {
			return Structure{}, core.NewFieldError("month", errStructureExistsText)
		}
		return Structure{}, errors.Wrap(err, "creating fee structure")
	}
	return s, nil
}

func (svc *service) Structures(ctx context.Context, class string) ([]Structure, error) {
	return svc.repo.ListStructures(ctx, core.CleanString(class))
}

// OpenPeriod gives every active student of the structure's class a pending record for it.
// Students that already have one are left alone, so opening twice creates nothing new.
func (svc *service) OpenPeriod(ctx context.Context, actor user.User, structureID int64) (int, error) {
	if !user.CanManageFees(actor) {
		return 0, core.ErrPermissionDenied
	}
	s, err := svc.repo.GetStructure(ctx, structureID)
	if err != nil {
		return 0, err
	}

	active := true
	students, err := svc.users.Students(ctx, user.StudentFilter{Class: s.Class, Active: &active})
	if err != nil {
		return 0, errors.Wrap(err, "listing students of class")
	}
	if len(students) == 0 {
		return 0, nil
	}
	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.User.ID
	}

	var created []string
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = svc.repo.CreatePendingRecords(ctx, s.ID, ids...); err != nil {
			return errors.Wrap(err, "creating fee records")
		}
		if len(created) == 0 {
			return nil
		}
		return svc.users.SetFeePaid(ctx, false, created...)
	})
	if err != nil {
		return 0, err
	}
	svc.logger.Info(fmt.Sprintf("opened fee period %s for class %s: %d records", s.Month, s.Class, len(created)))
	return len(created), nil
}

// Enroll gives a newly registered student a pending record for every structure of their class.
func (svc *service) Enroll(ctx context.Context, studentID string) (int, error) {
	profile, err := svc.users.StudentProfile(ctx, studentID)
	if err != nil {
		return 0, err
	}
	structures, err := svc.repo.ListStructures(ctx, profile.Class)
	if err != nil {
		return 0, errors.Wrap(err, "listing fee structures")
	}
	if len(structures) == 0 {
		return 0, nil
	}

	var count int
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, s := range structures {
			created, err := svc.repo.CreatePendingRecords(ctx, s.ID, studentID)
			if err != nil {
				return errors.Wrap(err, "creating fee record")
			}
			count += len(created)
		}
		if count == 0 {
			return nil
		}
		return svc.users.SetFeePaid(ctx, false, studentID)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (svc *service) ForStudent(ctx context.Context, actor user.User) (StudentFees, error) {
	if !actor.Can(user.CapViewOwnFees) {
		return StudentFees{}, core.ErrPermissionDenied
	}
	records, err := svc.repo.ListRecords(ctx, RecordFilter{StudentIDs: []string{actor.ID}})
	if err != nil {
		return StudentFees{}, errors.Wrap(err, "listing fee records")
	}
	return StudentFees{Records: records, Totals: Sum(records)}, nil
}

func (svc *service) Totals(ctx context.Context, studentID string) (Totals, error) {
	records, err := svc.repo.ListRecords(ctx, RecordFilter{StudentIDs: []string{studentID}})
	if err != nil {
		return Totals{}, errors.Wrap(err, "listing fee records")
	}
	return Sum(records), nil
}

// Pay settles one pending record of the acting student. Records of other students are reported
// as a permission error whether they exist or not.
func (svc *service) Pay(ctx context.Context, actor user.User, recordID int64) (Record, error) {
	if !user.CanPayFees(actor) {
		return Record{}, core.ErrPermissionDenied
	}

	var rec Record
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if rec, err = svc.ownRecord(ctx, actor, recordID); err != nil {
			return err
		}
		if rec.IsPaid() {
			return core.NewValidationError(ErrAlreadyPaid)
		}

		paidOn := core.Today(svc.conf.School.Location())
		if rec, err = svc.repo.MarkPaid(ctx, rec.ID, paidOn, "TXN-"+uuid.NewString()); err != nil {
			if errors.Cause(err) == ErrAlreadyPaid {
				return core.NewValidationError(ErrAlreadyPaid)
			}
			return errors.Wrap(err, "marking fee paid")
		}

		pending, err := svc.repo.ListRecords(ctx, RecordFilter{StudentIDs: []string{actor.ID}, Status: StatusPending})
		if err != nil {
			return errors.Wrap(err, "listing pending fees")
		}
		if len(pending) == 0 {
			return svc.users.SetFeePaid(ctx, true, actor.ID)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	svc.logger.Info(fmt.Sprintf("fee %d paid, transaction %s", rec.ID, *rec.TransactionID), actor)
	return rec, nil
}

func (svc *service) ownRecord(ctx context.Context, actor user.User, recordID int64) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Record{}, core.ErrPermissionDenied
		}
		return Record{}, errors.Wrap(err, "getting fee record")
	}
	if rec.StudentID != actor.ID {
		return Record{}, core.ErrPermissionDenied
	}
	return rec, nil
}

// Receipt returns the proof of a paid record to its student, or to staff allowed to see fees.
func (svc *service) Receipt(ctx context.Context, actor user.User, recordID int64) (Receipt, error) {
	var (
		rec Record
		err error
	)
	switch {
	case actor.Can(user.CapViewOwnFees):
		rec, err = svc.ownRecord(ctx, actor, recordID)
	case user.CanViewFeeReport(actor):
		rec, err = svc.repo.GetRecord(ctx, recordID)
	default:
		return Receipt{}, core.ErrPermissionDenied
	}
	if err != nil {
		return Receipt{}, err
	}
	if !rec.IsPaid() {
		return Receipt{}, core.NewValidationError(ErrNotPaid)
	}

	students, err := svc.users.Students(ctx, user.StudentFilter{IDs: []string{rec.StudentID}})
	if err != nil {
		return Receipt{}, errors.Wrap(err, "getting student")
	}
	if len(students) == 0 {
		return Receipt{}, ErrRecordNotFound
	}
	st := students[0]
	return Receipt{
		Record:      rec,
		StudentName: st.User.Name(),
		Username:    st.User.Username,
		AdmissionNo: st.Profile.AdmissionNo,
		Class:       st.Profile.Class,
		Section:     st.Profile.Section,
		RollNo:      st.Profile.RollNo,
		IssuedAt:    core.NowFunc().UTC(),
	}, nil
}

// Report lists fee records joined with their students, with collected and pending sums.
func (svc *service) Report(ctx context.Context, actor user.User, filter ReportFilter) (Report, error) {
	if !user.CanViewFeeReport(actor) {
		return Report{}, core.ErrPermissionDenied
	}
	filter.clean()
	if filter.Status != "" && !filter.Status.Valid() {
		return Report{}, core.NewFieldError("status", errStatusText)
	}
	if filter.Month != "" {
		if _, err := time.Parse(core.MonthLayout, filter.Month); err != nil {
			return Report{}, core.NewFieldError("month", errMonthText)
		}
	}

	records, err := svc.repo.ListRecords(ctx, RecordFilter{Class: filter.Class, Month: filter.Month, Status: filter.Status})
	if err != nil {
		return Report{}, errors.Wrap(err, "listing fee records")
	}

	var ids []string
	seen := map[string]bool{}
	for _, r := range records {
		if !seen[r.StudentID] {
			seen[r.StudentID] = true
			ids = append(ids, r.StudentID)
		}
	}
	byID := map[string]user.Student{}
	if len(ids) > 0 {
		students, err := svc.users.Students(ctx, user.StudentFilter{IDs: ids})
		if err != nil {
			return Report{}, errors.Wrap(err, "listing students")
		}
		for _, s := range students {
			byID[s.User.ID] = s
		}
	}

	rows := make([]ReportRow, 0, len(records))
	for _, r := range records {
		st := byID[r.StudentID]
		rows = append(rows, ReportRow{
			StudentID:     r.StudentID,
			Student:       st.User.Name(),
			Username:      st.User.Username,
			Class:         r.Class,
			Section:       st.Profile.Section,
			RollNo:        st.Profile.RollNo,
			Month:         r.Month,
			Amount:        r.Amount,
			Status:        r.Status,
			PaidOn:        r.PaidOn,
			TransactionID: r.TransactionID,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.RollNo != b.RollNo {
			return a.RollNo < b.RollNo
		}
		return a.Month < b.Month
	})

	return Report{Filter: filter, Rows: rows, Totals: Sum(records), ByClass: collectByClass(rows)}, nil
}

func (svc *service) Overview(ctx context.Context) (Overview, error) {
	records, err := svc.repo.ListRecords(ctx, RecordFilter{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "listing fee records")
	}
	ov := Overview{Records: len(records), Totals: Sum(records)}
	for _, r := range records {
		if !r.IsPaid() {
			ov.PendingRecords++
		}
	}
	return ov, nil
}

package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/user"
)

const ConstraintStudentDate = "attendance_student_date_key"

var (
	errDateText  = "enter a valid date (YYYY-MM-DD)"
	errMonthText = "month must be between 1 and 12"
	errYearText  = "enter a valid year"
)

type (
	Repository interface {
		// Upsert inserts rec or, when the student already has a record on that date, replaces its
		// status and marked_by. CreatedAt of an existing record is kept.
		Upsert(ctx context.Context, rec Record) (Record, error)
		// ListForStudent returns the records of a student, newest first.
		ListForStudent(ctx context.Context, studentID string) ([]Record, error)
		// CountByStudent counts statuses per student for dates in [from, to).
		CountByStudent(ctx context.Context, from, to time.Time, studentIDs ...string) (map[string]Counts, error)
	}

	Service interface {
		Mark(ctx context.Context, actor user.User, req MarkRequest) (MarkResult, error)
		ForStudent(ctx context.Context, actor user.User) (StudentAttendance, error)
		Summary(ctx context.Context, studentID string) (Summary, error)
		MonthlyReport(ctx context.Context, actor user.User, filter ReportFilter) (MonthlyReport, error)
	}

	service struct {
		conf   *core.Config
		repo   Repository
		users  user.Service
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, users user.Service, logger core.Logger) Service {
	return &service{conf: conf, repo: repo, users: users, logger: logger}
}

// Mark records one status per student of the teacher's class for a single date. Each row is
// saved on its own; rows with a missing or unreadable status are skipped.
func (svc *service) Mark(ctx context.Context, actor user.User, req MarkRequest) (MarkResult, error) {
	if !user.CanMarkAttendance(actor) {
		return MarkResult{}, core.ErrPermissionDenied
	}

	date := core.Today(svc.conf.School.Location())
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			return MarkResult{}, core.NewFieldError("date", errDateText)
		}
		date = d
	}

	scope, err := svc.users.TeacherScope(ctx, actor)
	if err != nil {
		return MarkResult{}, err
	}
	students, err := svc.users.Students(ctx, user.ScopeFilter(scope))
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "listing students in scope")
	}
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.User.ID
	}

	markedBy := actor.ID
	res, err := batch.Upsert(ctx, ids, req.Statuses, ParseStatus, func(ctx context.Context, studentID string, status Status) error {
		now := core.NowFunc().UTC()
		_, err := svc.repo.Upsert(ctx, Record{
			StudentID: studentID,
			Date:      date,
			Status:    status,
			MarkedBy:  &markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("saving attendance of %s: %v", studentID, err), err, actor)
		}
		return err
	})
	if err != nil {
		return MarkResult{}, err
	}
	return MarkResult{Date: date, Scope: scope, Result: res}, nil
}

func (svc *service) ForStudent(ctx context.Context, actor user.User) (StudentAttendance, error) {
	if !actor.Can(user.CapViewOwnAttendance) {
		return StudentAttendance{}, core.ErrPermissionDenied
	}
	records, err := svc.repo.ListForStudent(ctx, actor.ID)
	if err != nil {
		return StudentAttendance{}, errors.Wrap(err, "listing attendance")
	}
	return StudentAttendance{Records: records, Summary: Summarize(records)}, nil
}

// Summary is used by dashboards, callers check capabilities themselves.
func (svc *service) Summary(ctx context.Context, studentID string) (Summary, error) {
	records, err := svc.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing attendance")
	}
	return Summarize(records), nil
}

// MonthlyReport counts present and absent days per student for one month.
func (svc *service) MonthlyReport(ctx context.Context, actor user.User, filter ReportFilter) (MonthlyReport, error) {
	if !user.CanViewAttendanceReport(actor) {
		return MonthlyReport{}, core.ErrPermissionDenied
	}

	today := core.Today(svc.conf.School.Location())
	if filter.Month == 0 {
		filter.Month = int(today.Month())
	}
	if filter.Year == 0 {
		filter.Year = today.Year()
	}
	if filter.Month < 1 || filter.Month > 12 {
		return MonthlyReport{}, core.NewFieldError("month", errMonthText)
	}
	if filter.Year < 1900 || filter.Year > 9999 {
		return MonthlyReport{}, core.NewFieldError("year", errYearText)
	}

	students, err := svc.users.Students(ctx, user.StudentFilter{Class: filter.Class, Section: filter.Section})
	if err != nil {
		return MonthlyReport{}, errors.Wrap(err, "listing students")
	}
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.User.ID
	}

	from, to := filter.period()
	counts := map[string]Counts{}
	if len(ids) > 0 {
		if counts, err = svc.repo.CountByStudent(ctx, from, to, ids...); err != nil {
			return MonthlyReport{}, errors.Wrap(err, "counting attendance")
		}
	}

	report := MonthlyReport{Month: filter.Month, Year: filter.Year, Rows: make([]ReportRow, 0, len(students))}
	for _, s := range students {
		c := counts[s.User.ID]
		report.Rows = append(report.Rows, ReportRow{
			StudentID:  s.User.ID,
			Name:       s.User.Name(),
			Username:   s.User.Username,
			Class:      s.Profile.Class,
			Section:    s.Profile.Section,
			RollNo:     s.Profile.RollNo,
			Present:    c.Present,
			Absent:     c.Absent,
			Percentage: core.Percentage(c.Present, c.Present+c.Absent),
		})
	}
	return report, nil
}

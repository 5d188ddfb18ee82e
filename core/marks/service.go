package marks

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/user"
)

// constraints reported by the storage layer
const (
	ConstraintSubjectName     = "subject_class_name_key"
	ConstraintStudentExam     = "mark_student_subject_exam_key"
	ConstraintObtainedInTotal = "mark_obtained_within_total"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")

	errSubjectText   = "select a subject"
	errTotalText     = "total marks must be a positive number"
	errSubjectExists = "this subject already exists for the class"
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id int64) (Subject, error)
		// ListSubjects returns subjects ordered by class then name; empty class lists all.
		ListSubjects(ctx context.Context, class string) ([]Subject, error)
		// Upsert inserts m or replaces obtained, total and uploaded_by of the existing
		// (student, subject, exam) record.
		Upsert(ctx context.Context, m Mark) (Mark, error)
		// ListForStudent returns marks ordered by subject name; empty exam lists all exams.
		ListForStudent(ctx context.Context, studentID, exam string) ([]Mark, error)
		// Exams lists the distinct exam names of a student.
		Exams(ctx context.Context, studentID string) ([]string, error)
	}

	Service interface {
		CreateSubject(ctx context.Context, actor user.User, ns NewSubject) (Subject, error)
		Subjects(ctx context.Context, class string) ([]Subject, error)
		Upload(ctx context.Context, actor user.User, req UploadRequest) (UploadResult, error)
		ForStudent(ctx context.Context, actor user.User, exam string) (StudentMarks, error)
		OfStudent(ctx context.Context, studentID string) ([]MarkView, error)
	}

	service struct {
		repo     Repository
		users    user.Service
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, validate *validator.Validate, logger core.Logger) Service {
	return &service{repo: repo, users: users, validate: validate, logger: logger}
}

func (svc *service) CreateSubject(ctx context.Context, actor user.User, ns NewSubject) (Subject, error) {
	if !actor.Can(user.CapManageSubjects) {
		return Subject{}, core.ErrPermissionDenied
	}
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	s, err := svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, Class: ns.Class})
	if err != nil {
		if core.IsConflictOn(err, ConstraintSubjectName) {
			return Subject{}, core.NewFieldError("name", errSubjectExists)
		}
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return s, nil
}

func (svc *service) Subjects(ctx context.Context, class string) ([]Subject, error) {
	return svc.repo.ListSubjects(ctx, core.CleanString(class))
}

// Upload saves the marks of the teacher's students for one subject and exam. A value that is not
// a whole number between 0 and the total skips that student only.
func (svc *service) Upload(ctx context.Context, actor user.User, req UploadRequest) (UploadResult, error) {
	if !user.CanUploadMarks(actor) {
		return UploadResult{}, core.ErrPermissionDenied
	}
	if req.SubjectID <= 0 {
		return UploadResult{}, core.NewFieldError("subject_id", errSubjectText)
	}
	if req.TotalMarks <= 0 {
		return UploadResult{}, core.NewFieldError("total_marks", errTotalText)
	}
	exam := core.CleanString(req.ExamName)
	if exam == "" {
		exam = DefaultExamName
	}

	scope, err := svc.users.TeacherScope(ctx, actor)
	if err != nil {
		return UploadResult{}, err
	}
	subject, err := svc.repo.GetSubject(ctx, req.SubjectID)
	if err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return UploadResult{}, core.ErrPermissionDenied
		}
		return UploadResult{}, errors.Wrap(err, "getting subject")
	}
	if subject.Class != scope.Class {
		return UploadResult{}, core.ErrPermissionDenied
	}

	students, err := svc.users.Students(ctx, user.ScopeFilter(scope))
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "listing students in scope")
	}
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.User.ID
	}

	total := req.TotalMarks
	uploadedBy := actor.ID
	res, err := batch.Upsert(ctx, ids, req.Marks, obtainedParser(total), func(ctx context.Context, studentID string, obtained int) error {
		now := core.NowFunc().UTC()
		_, err := svc.repo.Upsert(ctx, Mark{
			StudentID:     studentID,
			SubjectID:     subject.ID,
			SubjectName:   subject.Name,
			ExamName:      exam,
			MarksObtained: &obtained,
			TotalMarks:    &total,
			UploadedBy:    &uploadedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("saving marks of %s: %v", studentID, err), err, actor)
		}
		return err
	})
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Subject: subject, ExamName: exam, TotalMarks: total, Result: res}, nil
}

func (svc *service) ForStudent(ctx context.Context, actor user.User, exam string) (StudentMarks, error) {
	if !actor.Can(user.CapViewOwnMarks) {
		return StudentMarks{}, core.ErrPermissionDenied
	}
	exam = core.CleanString(exam)
	marks, err := svc.repo.ListForStudent(ctx, actor.ID, exam)
	if err != nil {
		return StudentMarks{}, errors.Wrap(err, "listing marks")
	}
	exams, err := svc.repo.Exams(ctx, actor.ID)
	if err != nil {
		return StudentMarks{}, errors.Wrap(err, "listing exams")
	}
	return StudentMarks{Marks: views(marks), Exams: exams, Exam: exam}, nil
}

// OfStudent lists every mark of a student; callers check capabilities themselves.
func (svc *service) OfStudent(ctx context.Context, studentID string) ([]MarkView, error) {
	marks, err := svc.repo.ListForStudent(ctx, studentID, "")
	if err != nil {
		return nil, errors.Wrap(err, "listing marks")
	}
	return views(marks), nil
}

func views(marks []Mark) []MarkView {
	vs := make([]MarkView, len(marks))
	for i, m := range marks {
		vs[i] = NewMarkView(m)
	}
	return vs
}

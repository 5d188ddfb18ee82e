// Package homework lets teachers post assignments to a class and section.
package homework

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

var errDueDateText = "enter a valid due date (YYYY-MM-DD)"

type Homework struct {
	ID          int64     `json:"id" db:"id"`
	TeacherID   *string   `json:"teacher_id" db:"teacher_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Class       string    `json:"class" db:"class_name"`
	Section     string    `json:"section" db:"section"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewHomework is posted by a teacher. Class and section default to the teacher's assignment.
type NewHomework struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Class       string `json:"class" validate:"max=20"`
	Section     string `json:"section" validate:"max=5"`
	DueDate     string `json:"due_date" validate:"required,isodate"`
}

// Filter selects homework. Empty fields match everything.
type Filter struct {
	Class     string
	Section   string
	TeacherID string
	Limit     int
}

type (
	Repository interface {
		Create(ctx context.Context, hw Homework) (Homework, error)
		// List returns homework ordered by due date, then newest first.
		List(ctx context.Context, filter Filter) ([]Homework, error)
	}

	Service interface {
		Post(ctx context.Context, actor user.User, nh NewHomework) (Homework, error)
		ForStudent(ctx context.Context, actor user.User) ([]Homework, error)
		ByTeacher(ctx context.Context, actor user.User, limit int) ([]Homework, error)
	}

	service struct {
		repo     Repository
		users    user.Service
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, validate *validator.Validate) Service {
	return &service{repo: repo, users: users, validate: validate}
}

func (svc *service) Post(ctx context.Context, actor user.User, nh NewHomework) (Homework, error) {
	if !actor.Can(user.CapPostHomework) {
		return Homework{}, core.ErrPermissionDenied
	}
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	nh.Class = core.CleanString(nh.Class)
	nh.Section = core.CleanString(nh.Section)
	nh.DueDate = core.CleanString(nh.DueDate)
	if err := svc.validate.Struct(nh); err != nil {
		return Homework{}, err
	}
	due, err := core.ParseDate(nh.DueDate)
	if err != nil {
		return Homework{}, core.NewFieldError("due_date", errDueDateText)
	}

	if nh.Class == "" || nh.Section == "" {
		scope, err := svc.users.TeacherScope(ctx, actor)
		if err != nil {
			return Homework{}, err
		}
		if nh.Class == "" {
			nh.Class = scope.Class
		}
		if nh.Section == "" {
			nh.Section = scope.Section
		}
	}

	teacherID := actor.ID
	hw, err := svc.repo.Create(ctx, Homework{
		TeacherID:   &teacherID,
		Title:       nh.Title,
		Description: nh.Description,
		Class:       nh.Class,
		Section:     nh.Section,
		DueDate:     due,
		CreatedAt:   core.NowFunc().UTC(),
	})
	if err != nil {
		return Homework{}, errors.Wrap(err, "creating homework")
	}
	return hw, nil
}

// ForStudent lists the homework of the acting student's class and section.
func (svc *service) ForStudent(ctx context.Context, actor user.User) ([]Homework, error) {
	if !actor.IsStudent() || !actor.Can(user.CapViewHomework) {
		return nil, core.ErrPermissionDenied
	}
	p, err := svc.users.StudentProfile(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student profile")
	}
	return svc.repo.List(ctx, Filter{Class: p.Class, Section: p.Section})
}

func (svc *service) ByTeacher(ctx context.Context, actor user.User, limit int) ([]Homework, error) {
	if !actor.Can(user.CapPostHomework) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.List(ctx, Filter{TeacherID: actor.ID, Limit: limit})
}

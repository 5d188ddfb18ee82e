// Package dashboard composes the landing page of each role from the other services.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
)

const recentHomework = 5

type AdminDashboard struct {
	TotalStudents int             `json:"total_students"`
	TotalTeachers int             `json:"total_teachers"`
	Fees          fees.Overview   `json:"fees"`
	Notices       []notice.Notice `json:"notices"`
}

type TeacherDashboard struct {
	Profile  user.TeacherProfile `json:"profile"`
	Students int                 `json:"students"`
	Homework []homework.Homework `json:"homework"`
	Notices  []notice.Notice     `json:"notices"`
}

type StudentDashboard struct {
	Profile    user.StudentProfile `json:"profile"`
	Attendance attendance.Summary  `json:"attendance"`
	Marks      []marks.MarkView    `json:"marks"`
	Fees       fees.Totals         `json:"fees"`
	Homework   []homework.Homework `json:"homework"`
	Notices    []notice.Notice     `json:"notices"`
}

type Service struct {
	Users      user.Service
	Attendance attendance.Service
	Marks      marks.Service
	Fees       fees.Service
	Notices    notice.Service
	Homework   homework.Service
}

// For returns the dashboard matching the role of actor.
func (svc *Service) For(ctx context.Context, actor user.User) (interface{}, error) {
	if !actor.IsActive {
		return nil, core.ErrPermissionDenied
	}
	switch actor.Role {
	case user.RoleAdmin:
		return svc.Admin(ctx, actor)
	case user.RoleTeacher:
		return svc.Teacher(ctx, actor)
	case user.RoleStudent:
		return svc.Student(ctx, actor)
	}
	return nil, core.ErrPermissionDenied
}

func (svc *Service) Admin(ctx context.Context, actor user.User) (AdminDashboard, error) {
	if !actor.IsAdmin() || !actor.IsActive {
		return AdminDashboard{}, core.ErrPermissionDenied
	}
	var (
		d   AdminDashboard
		err error
	)
	if d.TotalStudents, err = svc.Users.Count(ctx, user.RoleStudent); err != nil {
		return d, errors.Wrap(err, "counting students")
	}
	if d.TotalTeachers, err = svc.Users.Count(ctx, user.RoleTeacher); err != nil {
		return d, errors.Wrap(err, "counting teachers")
	}
	if d.Fees, err = svc.Fees.Overview(ctx); err != nil {
		return d, err
	}
	if d.Notices, err = svc.Notices.Active(ctx); err != nil {
		return d, errors.Wrap(err, "listing notices")
	}
	return d, nil
}

// Teacher shows the teacher's own assignment. A teacher without a class still gets a dashboard.
func (svc *Service) Teacher(ctx context.Context, actor user.User) (TeacherDashboard, error) {
	if !actor.IsTeacher() || !actor.IsActive {
		return TeacherDashboard{}, core.ErrPermissionDenied
	}
	var (
		d   TeacherDashboard
		err error
	)
	if d.Profile, err = svc.Users.TeacherProfile(ctx, actor.ID); err != nil && errors.Cause(err) != user.ErrProfileNotFound {
		return d, errors.Wrap(err, "getting teacher profile")
	}
	if scope := d.Profile.Scope(); !scope.IsZero() {
		students, err := svc.Users.Students(ctx, user.ScopeFilter(scope))
		if err != nil {
			return d, errors.Wrap(err, "listing students")
		}
		d.Students = len(students)
	}
	if d.Homework, err = svc.Homework.ByTeacher(ctx, actor, recentHomework); err != nil {
		return d, errors.Wrap(err, "listing homework")
	}
	if d.Notices, err = svc.Notices.Active(ctx); err != nil {
		return d, errors.Wrap(err, "listing notices")
	}
	return d, nil
}

func (svc *Service) Student(ctx context.Context, actor user.User) (StudentDashboard, error) {
	if !actor.IsStudent() || !actor.IsActive {
		return StudentDashboard{}, core.ErrPermissionDenied
	}
	var (
		d   StudentDashboard
		err error
	)
	if d.Profile, err = svc.Users.StudentProfile(ctx, actor.ID); err != nil {
		return d, errors.Wrap(err, "getting student profile")
	}
	if d.Attendance, err = svc.Attendance.Summary(ctx, actor.ID); err != nil {
		return d, err
	}
	if d.Marks, err = svc.Marks.OfStudent(ctx, actor.ID); err != nil {
		return d, err
	}
	if d.Fees, err = svc.Fees.Totals(ctx, actor.ID); err != nil {
		return d, err
	}
	if d.Homework, err = svc.Homework.ForStudent(ctx, actor); err != nil {
		return d, err
	}
	if d.Notices, err = svc.Notices.Active(ctx); err != nil {
		return d, errors.Wrap(err, "listing notices")
	}
	return d, nil
}

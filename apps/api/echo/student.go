package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/metrics"
)

type studentApi struct {
	svc      user.Service
	feesSvc  fees.Service
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   core.Logger
}

func registerStudentAPI(g *echo.Group, authed []echo.MiddlewareFunc, logger core.Logger, deps *Deps) {
	api := studentApi{
		svc:      deps.UserSvc,
		feesSvc:  deps.FeesSvc,
		metrics:  deps.Metrics,
		validate: deps.Validate,
		logger:   logger,
	}

	sg := g.Group("/students", authed...)
	sg.POST("", api.register, capMiddleware(api.svc, user.CapRegisterStudents))
	sg.GET("", api.query, capMiddleware(api.svc, user.CapViewStudents))
	sg.GET("/me", api.me)
	sg.GET("/:id", api.retrieve, capMiddleware(api.svc, user.CapViewStudents))
}

func (api *studentApi) register(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reg, err := api.svc.RegisterStudent(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	api.metrics.Registered(reg.Attempts)

	// the student exists from here on, a failed enrolment is only reported
	if _, err := api.feesSvc.Enroll(ctx.Request().Context(), reg.Student.User.ID); err != nil {
		api.logger.Error("enrolling student in open fee periods", errors.Wrap(err, reg.Student.User.ID), actor)
	}
	return ctx.JSON(http.StatusCreated, reg)
}

// query lists students; teachers only ever see their own class and section.
func (api *studentApi) query(ctx echo.Context) error {
	var filter user.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StudentFilter")
	}

	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if actor.IsTeacher() {
		scope, err := api.svc.TeacherScope(ctx.Request().Context(), actor)
		if err != nil {
			return errors.Wrap(err, "getting teacher scope")
		}
		filter.Class, filter.Section = scope.Class, scope.Section
	}

	students, err := api.svc.Students(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []user.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) me(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !actor.IsStudent() {
		return errHttpNotFound
	}
	profile, err := api.svc.StudentProfile(ctx.Request().Context(), actor.ID)
	if err != nil {
		return errors.Wrap(err, "getting student profile")
	}
	return ctx.JSON(http.StatusOK, user.Student{User: actor, Profile: profile})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), user.StudentFilter{IDs: []string{ctx.Param("id")}})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if len(students) == 0 {
		return errHttpNotFound
	}
	student := students[0]

	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if actor.IsTeacher() {
		scope, err := api.svc.TeacherScope(ctx.Request().Context(), actor)
		if err != nil {
			return errors.Wrap(err, "getting teacher scope")
		}
		if scope != student.Profile.Scope() {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, student)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/user"
)

type teacherApi struct {
	svc      user.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := teacherApi{svc: deps.UserSvc, validate: deps.Validate}
	admin := capMiddleware(api.svc, user.CapManageUsers)

	tg := g.Group("/teachers", authed...)
	tg.GET("/me", api.me)
	tg.GET("/:id/profile", api.profile, admin)
	tg.PUT("/:id/profile", api.updateProfile, admin)
}

func (api *teacherApi) me(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !actor.IsTeacher() {
		return errHttpNotFound
	}
	profile, err := api.svc.TeacherProfile(ctx.Request().Context(), actor.ID)
	if err != nil {
		return errors.Wrap(err, "getting teacher profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *teacherApi) profile(ctx echo.Context) error {
	profile, err := api.svc.TeacherProfile(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *teacherApi) updateProfile(ctx echo.Context) error {
	var data user.UpdateTeacherProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacherProfile")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	profile, err := api.svc.UpdateTeacherProfile(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/dashboard"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
)

type noticeApi struct {
	svc   notice.Service
	users user.Service
}

func registerNoticeAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := noticeApi{svc: deps.NoticeSvc, users: deps.UserSvc}
	post := capMiddleware(api.users, user.CapPostNotice)

	ng := g.Group("/notices", authed...)
	ng.GET("", api.list)
	ng.POST("", api.create, post)
	ng.POST("/:id/activate", api.setActive(true), post)
	ng.POST("/:id/deactivate", api.setActive(false), post)
}

// list returns the active notices; `?all=true` includes deactivated ones for those who post them.
func (api *noticeApi) list(ctx echo.Context) error {
	all, _ := strconv.ParseBool(ctx.QueryParam("all"))

	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var list []notice.Notice
	if all {
		list, err = api.svc.All(ctx.Request().Context(), actor)
	} else {
		list, err = api.svc.Active(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "listing notices")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *noticeApi) create(ctx echo.Context) error {
	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Post(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "posting notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noticeApi) setActive(active bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramID(ctx, "id")
		if err != nil {
			return err
		}
		actor, err := getContextUser(ctx, api.users)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}

		n, err := api.svc.SetActive(ctx.Request().Context(), actor, id, active)
		if err != nil {
			return errors.Wrap(err, "updating notice")
		}
		return ctx.JSON(http.StatusOK, n)
	}
}

const recentHomework = 20

type homeworkApi struct {
	svc   homework.Service
	users user.Service
}

func registerHomeworkAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := homeworkApi{svc: deps.HomeworkSvc, users: deps.UserSvc}

	hg := g.Group("/homework", authed...)
	hg.GET("", api.list, capMiddleware(api.users, user.CapViewHomework))
	hg.POST("", api.create, capMiddleware(api.users, user.CapPostHomework))
}

// list shows students the homework of their class, and teachers what they posted.
func (api *homeworkApi) list(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var list []homework.Homework
	if actor.IsStudent() {
		list, err = api.svc.ForStudent(ctx.Request().Context(), actor)
	} else {
		list, err = api.svc.ByTeacher(ctx.Request().Context(), actor, recentHomework)
	}
	if err != nil {
		return errors.Wrap(err, "listing homework")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *homeworkApi) create(ctx echo.Context) error {
	var data homework.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	hw, err := api.svc.Post(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "posting homework")
	}
	return ctx.JSON(http.StatusCreated, hw)
}

type dashboardApi struct {
	svc   *dashboard.Service
	users user.Service
}

func registerDashboardAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := dashboardApi{svc: deps.Dashboard, users: deps.UserSvc}
	g.GET("/dashboard", api.retrieve, authed...)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	d, err := api.svc.For(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

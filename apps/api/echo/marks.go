package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/metrics"
)

type marksApi struct {
	svc     marks.Service
	users   user.Service
	metrics *metrics.Metrics
}

func registerMarksAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := marksApi{svc: deps.MarksSvc, users: deps.UserSvc, metrics: deps.Metrics}

	sg := g.Group("/subjects", authed...)
	sg.GET("", api.subjects)
	sg.POST("", api.createSubject, capMiddleware(api.users, user.CapManageSubjects))

	mg := g.Group("/marks", authed...)
	mg.POST("", api.upload, capMiddleware(api.users, user.CapUploadMarks))
	mg.GET("/me", api.me, capMiddleware(api.users, user.CapViewOwnMarks))
}

func (api *marksApi) subjects(ctx echo.Context) error {
	subjects, err := api.svc.Subjects(ctx.Request().Context(), ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *marksApi) createSubject(ctx echo.Context) error {
	var data marks.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	subject, err := api.svc.CreateSubject(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (api *marksApi) upload(ctx echo.Context) error {
	var data marks.UploadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UploadRequest")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Upload(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "uploading marks")
	}
	api.metrics.Batch(metrics.WorkflowMarks, res.Result)
	return ctx.JSON(http.StatusOK, UploadMarksResponse{UploadResult: res, Warning: batchWarning(res.Result)})
}

func (api *marksApi) me(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.ForStudent(ctx.Request().Context(), actor, ctx.QueryParam("exam"))
	if err != nil {
		return errors.Wrap(err, "getting marks")
	}
	return ctx.JSON(http.StatusOK, res)
}

type UploadMarksResponse struct {
	marks.UploadResult
	Warning string `json:"warning,omitempty"`
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/batch"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/metrics"
)

const warnNothingSaved = "no records were saved"

type attendanceApi struct {
	srv     *Server
	svc     attendance.Service
	users   user.Service
	metrics *metrics.Metrics
}

func registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, srv *Server) {
	api := attendanceApi{
		srv:     srv,
		svc:     srv.deps.AttendanceSvc,
		users:   srv.deps.UserSvc,
		metrics: srv.deps.Metrics,
	}

	ag := g.Group("/attendance", authed...)
	ag.POST("", api.mark, capMiddleware(api.users, user.CapMarkAttendance))
	ag.GET("/me", api.me, capMiddleware(api.users, user.CapViewOwnAttendance))
	ag.GET("/monthly", api.monthly, capMiddleware(api.users, user.CapViewAttendanceReport))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Mark(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	api.metrics.Batch(metrics.WorkflowAttendance, res.Result)
	return ctx.JSON(http.StatusOK, MarkAttendanceResponse{MarkResult: res, Warning: batchWarning(res.Result)})
}

func (api *attendanceApi) me(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.ForStudent(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) monthly(ctx echo.Context) error {
	var filter attendance.ReportFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ReportFilter")
	}
	exp, err := api.srv.exporter(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	report, err := api.svc.MonthlyReport(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	if exp != nil {
		return sendTables(ctx, exp, report.Title(), report.Table())
	}
	return ctx.JSON(http.StatusOK, report)
}

type MarkAttendanceResponse struct {
	attendance.MarkResult
	Warning string `json:"warning,omitempty"`
}

// batchWarning is shown to the user when a batch saved nothing.
func batchWarning(res batch.Result) string {
	if res.Saved == 0 {
		return warnNothingSaved
	}
	return ""
}

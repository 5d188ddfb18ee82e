package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/export"
	"github.com/vidhyasetu/backend/services/metrics"
)

type feesApi struct {
	srv     *Server
	svc     fees.Service
	users   user.Service
	metrics *metrics.Metrics
}

func registerFeesAPI(g *echo.Group, authed []echo.MiddlewareFunc, srv *Server) {
	api := feesApi{
		srv:     srv,
		svc:     srv.deps.FeesSvc,
		users:   srv.deps.UserSvc,
		metrics: srv.deps.Metrics,
	}
	manage := capMiddleware(api.users, user.CapManageFees)

	fg := g.Group("/fees", authed...)
	fg.GET("/structures", api.structures, capMiddleware(api.users, user.CapManageFees, user.CapViewFeeReport))
	fg.POST("/structures", api.createStructure, manage)
	fg.POST("/structures/:id/open", api.openPeriod, manage)
	fg.GET("/report", api.report, capMiddleware(api.users, user.CapViewFeeReport))
	fg.GET("/me", api.me, capMiddleware(api.users, user.CapViewOwnFees))
	fg.POST("/:id/pay", api.pay, capMiddleware(api.users, user.CapPayFees))
	fg.GET("/:id/receipt", api.receipt, capMiddleware(api.users, user.CapViewOwnFees, user.CapViewFeeReport))
}

func (api *feesApi) structures(ctx echo.Context) error {
	list, err := api.svc.Structures(ctx.Request().Context(), ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "listing fee structures")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *feesApi) createStructure(ctx echo.Context) error {
	var data fees.NewStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStructure")
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.CreateStructure(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *feesApi) openPeriod(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.OpenPeriod(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "opening fee period")
	}
	return ctx.JSON(http.StatusOK, OpenPeriodResponse{Created: n})
}

func (api *feesApi) me(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.ForStudent(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "getting fees")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *feesApi) pay(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.Pay(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "paying fee")
	}
	api.metrics.FeePaid()
	return ctx.JSON(http.StatusOK, rec)
}

// receipt answers JSON unless ?format=pdf is asked for.
func (api *feesApi) receipt(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rcpt, err := api.svc.Receipt(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "getting receipt")
	}

	switch ctx.QueryParam(formatParam) {
	case "", "json":
		return ctx.JSON(http.StatusOK, rcpt)
	case "pdf":
		var buf bytes.Buffer
		if err := export.Receipt(&buf, api.srv.conf.AppName, rcpt); err != nil {
			return errors.Wrap(err, "rendering receipt")
		}
		pdf := export.PDF{}
		return sendFile(ctx, pdf.ContentType(), fileName(rcpt.Number())+pdf.Extension(), buf.Bytes())
	}
	return errInvalidFormat
}

func (api *feesApi) report(ctx echo.Context) error {
	var filter fees.ReportFilter
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

	report, err := api.svc.Report(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "building fee report")
	}
	if exp != nil {
		return sendTables(ctx, exp, report.Title(), report.Tables()...)
	}
	return ctx.JSON(http.StatusOK, report)
}

type OpenPeriodResponse struct {
	Created int `json:"created"`
}

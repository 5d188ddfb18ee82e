package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/services/export"
)

var (
	orderingParam = "ordering"
	formatParam   = "format"

	errInvalidFormat = core.NewFieldError(formatParam, "format must be one of json, xlsx or pdf")
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// paramID reads a numeric path parameter.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// exporter picks the file format asked for by the `format` query param; nil means JSON.
func (s *Server) exporter(ctx echo.Context) (core.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(ctx.QueryParam(formatParam))) {
	case "", "json":
		return nil, nil
	case "xlsx":
		return export.XLSX{}, nil
	case "pdf":
		return export.PDF{Heading: s.conf.AppName}, nil
	}
	return nil, errInvalidFormat
}

// sendTables writes tables as an attachment named after title.
func sendTables(ctx echo.Context, exp core.Exporter, title string, tables ...core.Table) error {
	var buf bytes.Buffer
	if err := exp.Export(&buf, tables...); err != nil {
		return errors.Wrap(err, "exporting tables")
	}
	return sendFile(ctx, exp.ContentType(), fileName(title)+exp.Extension(), buf.Bytes())
}

func sendFile(ctx echo.Context, contentType, name string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return ctx.Blob(http.StatusOK, contentType, data)
}

func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if name == "" {
		return "export"
	}
	return strings.ToLower(name)
}

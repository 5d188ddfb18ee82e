package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core/batch"
)

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/items/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/v1/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden) })

	for _, target := range []string{"/v1/items/1", "/v1/items/2", "/v1/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/fail", "403")))
}

func TestBatchAndRegistrations(t *testing.T) {
	m := New()
	m.Batch(WorkflowAttendance, batch.Result{
		Saved:   3,
		Skipped: map[string]string{"a": batch.ReasonInvalid, "b": batch.ReasonInvalid, "c": batch.ReasonOutOfScope},
	})
	m.Registered(1)
	m.Registered(4)
	m.FeePaid()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.batchRows.WithLabelValues(WorkflowAttendance, "saved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchRows.WithLabelValues(WorkflowAttendance, batch.ReasonInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchRows.WithLabelValues(WorkflowAttendance, batch.ReasonOutOfScope)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.registrations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rollRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feePayments))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FeePaid()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "vidhya_fee_payments_total 1"))
}

// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidhyasetu/backend/core/batch"
)

const namespace = "vidhya"

// Batch workflows.
const (
	WorkflowAttendance = "attendance"
	WorkflowMarks      = "marks"
)

type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	batchRows     *prometheus.CounterVec
	registrations prometheus.Counter
	rollRetries   prometheus.Counter
	feePayments   prometheus.Counter
}

// New registers the collectors on a registry of their own, next to the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		batchRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_rows_total", Help: "Rows submitted to batch workflows by outcome",
		}, []string{"workflow", "outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "student_registrations_total", Help: "Registered students",
		}),
		rollRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "registration_retries_total", Help: "Registration attempts retried after an identifier conflict",
		}),
		feePayments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fee_payments_total", Help: "Fee records paid",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.batchRows, m.registrations, m.rollRetries, m.feePayments,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Middleware counts requests and observes their latency, labelled by route pattern.
// Errors are handed to the echo error handler here so that the final status is known.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Batch records the outcome of every row of a batch.
func (m *Metrics) Batch(workflow string, res batch.Result) {
	m.batchRows.WithLabelValues(workflow, "saved").Add(float64(res.Saved))
	for _, reason := range res.Skipped {
		m.batchRows.WithLabelValues(workflow, reason).Inc()
	}
}

// Registered records a registration that took attempts tries.
func (m *Metrics) Registered(attempts int) {
	m.registrations.Inc()
	if attempts > 1 {
		m.rollRetries.Add(float64(attempts - 1))
	}
}

func (m *Metrics) FeePaid() { m.feePayments.Inc() }

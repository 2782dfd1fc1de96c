// Package metrics exposes prometheus collectors for the API, the storage layer and the domain.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/parokia/core"
)

type ctxKey string

const routeLabelKey ctxKey = "metrics_route"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parokia_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parokia_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parokia_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parokia_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	expansionOccurrences = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parokia_recurrence_occurrences",
		Help:    "Occurrences produced by one event expansion.",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	expansionTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parokia_recurrence_truncated_total",
		Help: "Event expansions that hit the occurrence cap.",
	})

	digestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parokia_digest_transitions_total",
		Help: "Digest status transitions, by outcome.",
	}, []string{"from", "to", "outcome"})
)

// Middleware records request metrics and stores the route label for downstream instrumentation.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), routeLabelKey, route)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err) // let the error handler set the status
			}

			status := c.Response().Status
			statusCode := strconv.Itoa(status)
			method := req.Method
			httpRequestsTotal.WithLabelValues(method, route).Inc()
			httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(time.Since(start).Seconds())
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(method, route, statusCode).Inc()
			}
			return nil
		}
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDBLatency records database latency for a given operation, associating it with the request route when available.
func ObserveDBLatency(ctx context.Context, operation string, start time.Time) {
	dbLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeLabelKey).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

// Domain implements core.Metrics.
type Domain struct{}

var _ core.Metrics = Domain{} // interface compliance check

func (Domain) ObserveExpansion(occurrences int, truncated bool) {
	expansionOccurrences.Observe(float64(occurrences))
	if truncated {
		expansionTruncated.Inc()
	}
}

func (Domain) ObserveDigestTransition(from, to string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	digestTransitions.WithLabelValues(from, to, outcome).Inc()
}

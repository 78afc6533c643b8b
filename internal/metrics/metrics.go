// Package metrics holds the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing, so tests can skip registration.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "api_universal"

// Metrics groups the collectors registered by New.
type Metrics struct {
	authOps      *prometheus.CounterVec
	tokenRotated prometheus.Counter
	reqDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session operations by name and outcome.",
		}, []string{"op", "outcome"}),
		tokenRotated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_rotated_total",
			Help:      "Refresh tokens replaced by a new pair.",
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.authOps, m.tokenRotated, m.reqDuration)
	return m
}

// AuthOp counts one session operation. outcome is "ok" or an error kind.
func (m *Metrics) AuthOp(op, outcome string) {
	if m == nil {
		return
	}
	m.authOps.WithLabelValues(op, outcome).Inc()
}

// TokenRotated counts one successful rotation.
func (m *Metrics) TokenRotated() {
	if m == nil {
		return
	}
	m.tokenRotated.Inc()
}

// Middleware observes request latency labelled by the matched route
// pattern, not the raw path, to keep label cardinality bounded. Errors are
// rendered before observing so the status label is final.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			m.reqDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
